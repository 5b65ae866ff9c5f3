package presenter

import (
	"secureentry/internal/models"
	"secureentry/internal/symbology"
)

// Kind names the state variant.
func Kind(s State) models.StateKind {
	switch s.(type) {
	case Loading:
		return models.StateKindLoading
	case QRCode:
		return models.StateKindQRCode
	case StaticPDF417:
		return models.StateKindStaticPDF417
	case RotatingPDF417:
		return models.StateKindRotatingPDF417
	case Error:
		return models.StateKindError
	case CustomError:
		return models.StateKindCustomError
	}
	return models.StateKindNone
}

// Image returns the image a state shows, if any.
func Image(s State) (symbology.Image, bool) {
	switch st := s.(type) {
	case Loading:
		return st.Placeholder, true
	case QRCode:
		return st.Image, true
	case StaticPDF417:
		return st.Image, true
	case RotatingPDF417:
		return st.Image, true
	}
	return symbology.Image{}, false
}

// Describe builds the view a display renders for s.
func Describe(s State) models.StateView {
	v := models.StateView{
		Kind:                Kind(s),
		Subtitle:            Subtitle(s),
		BarcodeHidden:       BarcodeHidden(s),
		ErrorHidden:         ErrorHidden(s),
		ScanAnimationHidden: ScanAnimationHidden(s),
		SubtitleHidden:      SubtitleHidden(s),
		Mirrored:            Mirrored(s),
		Padding:             Padding(s),
	}

	if img, ok := Image(s); ok {
		v.Format = string(img.Format)
		v.Width = img.Width
		v.Height = img.Height
		v.Image = img.PNG
	}

	switch st := s.(type) {
	case QRCode:
		v.Payload = st.Barcode
	case StaticPDF417:
		v.Payload = st.Barcode
	case RotatingPDF417:
		v.Payload = st.Payload
		v.Parity = st.Parity
	case Error:
		v.Message, v.Icon = st.Message, st.Icon
	case CustomError:
		v.Message, v.Icon = st.Message, st.Icon
	}
	return v
}
