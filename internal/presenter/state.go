// Package presenter decides which barcode a ticket display shows and keeps it
// fresh.
//
// The State sum type and the transition functions in this file are pure:
// they take the current state plus inputs and return the next state. The
// Presenter owns the current state, drives the transitions on token changes
// and ticks, and publishes every assignment.
package presenter

import (
	"bytes"

	"secureentry/internal/symbology"
)

const IconAlert = "alert"

// Alert is a message with an icon name.
type Alert struct {
	Message string
	Icon    string
}

// State is one of None, Loading, QRCode, StaticPDF417, RotatingPDF417, Error
// or CustomError.
type State interface {
	isState()
}

type None struct{}

// Loading shows a placeholder image while no ticket is loaded.
type Loading struct {
	Placeholder symbology.Image
}

type QRCode struct {
	Barcode string
	Image   symbology.Image
}

type StaticPDF417 struct {
	Barcode  string
	Image    symbology.Image
	Subtitle string
}

type RotatingPDF417 struct {
	Payload string
	// FallbackBarcode is empty when the ticket has none.
	FallbackBarcode string
	Image           symbology.Image
	Subtitle        string
	// Parity flips every time a new payload is shown.
	Parity bool
}

// Error is shown when a ticket cannot be displayed.
type Error struct {
	Message string
	Icon    string
}

// CustomError is an error set from outside, independent of the ticket.
type CustomError struct {
	Message string
	Icon    string
}

func (None) isState()           {}
func (Loading) isState()        {}
func (QRCode) isState()         {}
func (StaticPDF417) isState()   {}
func (RotatingPDF417) isState() {}
func (Error) isState()          {}
func (CustomError) isState()    {}

// Rotation is the input of ShowRotatingPDF417. Err is the payload
// composition error, if any.
type Rotation struct {
	Payload         string
	Err             error
	FallbackBarcode string
	Subtitle        string
}

func Reset(State) State {
	return None{}
}

func ShowError(_ State, a Alert) State {
	return Error{Message: a.Message, Icon: a.Icon}
}

func ShowCustomError(_ State, a Alert) State {
	return CustomError{Message: a.Message, Icon: a.Icon}
}

func ShowQRCode(s State, r symbology.Renderer, barcode string, a Alert) State {
	img, err := r.RenderQR(barcode)
	if err != nil {
		return ShowError(s, a)
	}
	return QRCode{Barcode: barcode, Image: img}
}

// ShowStaticPDF417 falls back to a QR code of the same barcode.
func ShowStaticPDF417(s State, r symbology.Renderer, barcode, subtitle string, a Alert) State {
	img, err := r.RenderPDF417(barcode)
	if err != nil {
		return ShowQRCode(s, r, barcode, a)
	}
	return StaticPDF417{Barcode: barcode, Image: img, Subtitle: subtitle}
}

// ShowRotatingPDF417 falls back to a QR code of the fallback barcode when the
// payload cannot be composed or rendered.
//
// Coming from a rotating state, Parity is
// (payload unchanged) == previous Parity, so it flips exactly when the payload
// changes. Entering from any other state it is false.
func ShowRotatingPDF417(s State, r symbology.Renderer, in Rotation, a Alert) State {
	var img symbology.Image
	err := in.Err
	if err == nil {
		img, err = r.RenderPDF417(in.Payload)
	}
	if err != nil {
		if in.FallbackBarcode == "" {
			return ShowError(s, a)
		}
		return ShowQRCode(s, r, in.FallbackBarcode, a)
	}

	parity := false
	if prev, ok := s.(RotatingPDF417); ok {
		parity = (in.Payload == prev.Payload) == prev.Parity
	}

	return RotatingPDF417{
		Payload:         in.Payload,
		FallbackBarcode: in.FallbackBarcode,
		Image:           img,
		Subtitle:        in.Subtitle,
		Parity:          parity,
	}
}

// SetLoadingImage enters Loading from None and swaps a different placeholder
// while loading. Other states are kept.
func SetLoadingImage(s State, img symbology.Image) State {
	switch st := s.(type) {
	case None:
		return Loading{Placeholder: img}
	case Loading:
		if bytes.Equal(st.Placeholder.PNG, img.PNG) {
			return s
		}
		return Loading{Placeholder: img}
	}
	return s
}

// SetPDF417Subtitle replaces the subtitle of PDF417 states.
func SetPDF417Subtitle(s State, subtitle string) State {
	switch st := s.(type) {
	case StaticPDF417:
		st.Subtitle = subtitle
		return st
	case RotatingPDF417:
		st.Subtitle = subtitle
		return st
	}
	return s
}

// SetErrorMessage replaces the message of Error. CustomError is kept.
func SetErrorMessage(s State, message string) State {
	if st, ok := s.(Error); ok {
		st.Message = message
		return st
	}
	return s
}

func BarcodeHidden(s State) bool {
	switch s.(type) {
	case Loading, QRCode, StaticPDF417, RotatingPDF417:
		return false
	}
	return true
}

func ErrorHidden(s State) bool {
	switch s.(type) {
	case Error, CustomError:
		return false
	}
	return true
}

func ScanAnimationHidden(s State) bool {
	switch s.(type) {
	case StaticPDF417, RotatingPDF417:
		return false
	}
	return true
}

func SubtitleHidden(s State) bool {
	return Subtitle(s) == ""
}

// Subtitle returns the subtitle shown under the barcode, if any.
func Subtitle(s State) string {
	switch st := s.(type) {
	case StaticPDF417:
		return st.Subtitle
	case RotatingPDF417:
		return st.Subtitle
	}
	return ""
}

// Mirrored reports whether the barcode image is drawn flipped vertically.
func Mirrored(s State) bool {
	return isRotating(s)
}

// Padding returns the inset around the barcode image, in points.
func Padding(s State) int {
	switch s.(type) {
	case QRCode:
		return 8
	case Loading, StaticPDF417, RotatingPDF417:
		return 12
	}
	return 0
}

func isRotating(s State) bool {
	_, ok := s.(RotatingPDF417)
	return ok
}
