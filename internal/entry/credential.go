// Package entry decodes ticket tokens into typed entry credentials.
//
// A token is normally base64-encoded JSON:
//
//	{"b":"<barcode>","t":"<static token>","ck":"<hex>","ek":"<hex>","rt":"rotating_symbology"}
//
// Anything that is not such a document is treated as a raw barcode and
// accepted only if it looks like one (12-18 digits with an optional letter).
package entry

// Credential is one of Invalid, QRCode, StaticPDF417 or RotatingPDF417.
// Credentials are immutable once decoded.
type Credential interface {
	isCredential()
}

// Invalid is the result of a token that could not be decoded by any path.
type Invalid struct{}

// QRCode is a barcode rendered as a QR code.
type QRCode struct {
	Barcode string
}

// StaticPDF417 is a barcode rendered as a non-rotating PDF417.
type StaticPDF417 struct {
	Barcode string
}

// RotatingPDF417 carries the material for a time-rotating PDF417 payload.
type RotatingPDF417 struct {
	Token       string
	CustomerKey []byte
	// EventKey is nil when the token has no event secret.
	EventKey []byte
	// FallbackBarcode is shown as a QR code when the PDF417 cannot be produced.
	// Empty means absent.
	FallbackBarcode string
}

func (Invalid) isCredential()        {}
func (QRCode) isCredential()         {}
func (StaticPDF417) isCredential()   {}
func (RotatingPDF417) isCredential() {}

// HasEventKey reports whether the credential carries an event secret.
func (r RotatingPDF417) HasEventKey() bool {
	return r.EventKey != nil
}

// Kind returns a short name for logs.
func Kind(c Credential) string {
	switch c.(type) {
	case QRCode:
		return "qr_code"
	case StaticPDF417:
		return "static_pdf417"
	case RotatingPDF417:
		return "rotating_pdf417"
	case Invalid:
		return "invalid"
	default:
		return "none"
	}
}
