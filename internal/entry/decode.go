package entry

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// JSON keys of a token document.
const (
	keyBarcode     = "b"
	keyToken       = "t"
	keyCustomerKey = "ck"
	keyEventKey    = "ek"
	keyRenderType  = "rt"
)

// RenderType is the explicit decoding path requested by a token.
type RenderType string

const (
	RenderTypeBarcode           RenderType = "barcode"
	RenderTypeRotatingSymbology RenderType = "rotating_symbology"
)

var (
	// ErrDecode is the root of every decoding failure.
	ErrDecode = errors.New("entry: decode failed")
	// ErrMissingField indicates a required key is absent, null or not a string.
	ErrMissingField = fmt.Errorf("%w: missing field", ErrDecode)
	// ErrEmptyField indicates a required string is empty.
	ErrEmptyField = fmt.Errorf("%w: empty field", ErrDecode)
	// ErrInvalidHex indicates a secret is not even-length hexadecimal.
	ErrInvalidHex = fmt.Errorf("%w: invalid hex secret", ErrDecode)
	// ErrNotBarcode indicates a raw token does not look like a barcode.
	ErrNotBarcode = fmt.Errorf("%w: not a barcode", ErrDecode)
)

var barcodeRegex = regexp.MustCompile(`^[0-9]{12,18}[A-Za-z]?$`)

// Decode turns a token into a Credential. It never fails: anything that cannot
// be decoded becomes Invalid.
func Decode(token string) Credential {
	c, _ := DecodeErr(token)
	return c
}

// DecodeErr is Decode that also reports why the final fallback was taken.
// The returned Credential is always usable; err is for diagnostics only.
func DecodeErr(token string) (Credential, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return fromBarcode(token)
	}

	var doc document
	if err := json.Unmarshal(data, &doc.fields); err != nil || doc.fields == nil {
		return fromBarcode(token)
	}

	c, err := doc.credential()
	if err != nil {
		// Exhausted every path of the document. The raw token still gets the
		// barcode check; a base64 JSON token never passes it.
		raw, rawErr := fromBarcode(token)
		if rawErr != nil {
			return raw, errors.Join(err, rawErr)
		}
		return raw, nil
	}
	return c, nil
}

// FromBarcode accepts raw barcode text as a QR code or rejects it as Invalid.
func FromBarcode(barcode string) Credential {
	c, _ := fromBarcode(barcode)
	return c
}

func fromBarcode(barcode string) (Credential, error) {
	if !barcodeRegex.MatchString(barcode) {
		return Invalid{}, ErrNotBarcode
	}
	return QRCode{Barcode: barcode}, nil
}

// IsBarcode reports whether s matches the raw barcode pattern.
func IsBarcode(s string) bool {
	return barcodeRegex.MatchString(s)
}

// document gives typed, per-field access to a token so a bad field only fails
// the construction path that needs it.
type document struct {
	fields map[string]json.RawMessage
}

func (d document) credential() (Credential, error) {
	switch d.renderType() {
	case RenderTypeRotatingSymbology:
		c, err := d.rotatingPDF417()
		if err == nil {
			return c, nil
		}
		return d.staticPDF417()

	case RenderTypeBarcode:
		return d.qrCode()

	default:
		c, err := d.rotatingPDF417()
		if err == nil {
			return c, nil
		}
		return d.qrCode()
	}
}

// renderType returns "" for an absent, malformed or unknown render type.
func (d document) renderType() RenderType {
	s, ok, err := d.optionalString(keyRenderType)
	if err != nil || !ok {
		return ""
	}
	switch rt := RenderType(s); rt {
	case RenderTypeBarcode, RenderTypeRotatingSymbology:
		return rt
	}
	return ""
}

func (d document) rotatingPDF417() (Credential, error) {
	token, err := d.requiredString(keyToken)
	if err != nil {
		return nil, fmt.Errorf("rotating pdf417: %w", err)
	}
	customerKey, err := d.requiredString(keyCustomerKey)
	if err != nil {
		return nil, fmt.Errorf("rotating pdf417: %w", err)
	}
	eventKey, hasEventKey, err := d.optionalString(keyEventKey)
	if err != nil {
		return nil, fmt.Errorf("rotating pdf417: %w", err)
	}
	barcode, _, err := d.optionalString(keyBarcode)
	if err != nil {
		return nil, fmt.Errorf("rotating pdf417: %w", err)
	}

	if token == "" {
		return nil, fmt.Errorf("rotating pdf417: %w: %s", ErrEmptyField, keyToken)
	}
	if customerKey == "" {
		return nil, fmt.Errorf("rotating pdf417: %w: %s", ErrEmptyField, keyCustomerKey)
	}

	customerBytes, err := DecodeHex(customerKey)
	if err != nil {
		return nil, fmt.Errorf("rotating pdf417: %s: %w", keyCustomerKey, err)
	}

	var eventBytes []byte
	if hasEventKey && eventKey != "" {
		eventBytes, err = DecodeHex(eventKey)
		if err != nil {
			return nil, fmt.Errorf("rotating pdf417: %s: %w", keyEventKey, err)
		}
	}

	return RotatingPDF417{
		Token:           token,
		CustomerKey:     customerBytes,
		EventKey:        eventBytes,
		FallbackBarcode: barcode,
	}, nil
}

func (d document) staticPDF417() (Credential, error) {
	barcode, err := d.nonEmptyBarcode()
	if err != nil {
		return nil, fmt.Errorf("static pdf417: %w", err)
	}
	return StaticPDF417{Barcode: barcode}, nil
}

func (d document) qrCode() (Credential, error) {
	barcode, err := d.nonEmptyBarcode()
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	return QRCode{Barcode: barcode}, nil
}

func (d document) nonEmptyBarcode() (string, error) {
	barcode, err := d.requiredString(keyBarcode)
	if err != nil {
		return "", err
	}
	if barcode == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyField, keyBarcode)
	}
	return barcode, nil
}

// requiredString fails for an absent key, a null or a non-string value.
func (d document) requiredString(key string) (string, error) {
	s, ok, err := d.optionalString(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return s, nil
}

// optionalString treats an absent key and a null value as "not present" and
// fails only when the value has the wrong type.
func (d document) optionalString(key string) (string, bool, error) {
	raw, ok := d.fields[key]
	if !ok || string(raw) == "null" {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, fmt.Errorf("%w: %s is not a string", ErrMissingField, key)
	}
	return s, true, nil
}

// DecodeHex decodes an even-length hexadecimal secret of either case.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidHex, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return b, nil
}

// EncodeHex is the lowercase inverse of DecodeHex.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
