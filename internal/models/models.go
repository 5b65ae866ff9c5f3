package models

type StateKind string

const (
	StateKindNone           StateKind = "none"
	StateKindLoading        StateKind = "loading"
	StateKindQRCode         StateKind = "qr_code"
	StateKindStaticPDF417   StateKind = "static_pdf417"
	StateKindRotatingPDF417 StateKind = "rotating_pdf417"
	StateKindError          StateKind = "error"
	StateKindCustomError    StateKind = "custom_error"
)

// StateView is what a display needs to draw the current presentation state.
type StateView struct {
	Kind StateKind `json:"kind"`
	// Format is the barcode symbology, empty when no barcode is shown.
	Format   string `json:"format,omitempty"`
	Payload  string `json:"payload,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Message  string `json:"message,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Parity   bool   `json:"parity"`

	BarcodeHidden       bool `json:"barcodeHidden"`
	ErrorHidden         bool `json:"errorHidden"`
	ScanAnimationHidden bool `json:"scanAnimationHidden"`
	SubtitleHidden      bool `json:"subtitleHidden"`
	// Mirrored means the image is drawn flipped vertically.
	Mirrored bool `json:"mirrored"`
	// Padding around the image, in points.
	Padding int `json:"padding"`

	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Image  []byte `json:"image,omitempty"` // PNG, base64 in JSON
}

// TimeView reports the corrected clock.
type TimeView struct {
	Now    int64 `json:"now"`    // Unix milliseconds
	Offset int64 `json:"offset"` // milliseconds
	Synced bool  `json:"synced"`
}

// ServerMessage represents a message to a display viewer.
type ServerMessage struct {
	Type  ServerMessageType `json:"type"`
	State *StateView        `json:"state,omitempty"`
	Time  *TimeView         `json:"time,omitempty"`
}

type ServerMessageType string

const (
	ServerMessageTypeState ServerMessageType = "state"
	ServerMessageTypeTime  ServerMessageType = "time"
)

// ClientMessage represents a message sent from a viewer.
type ClientMessage struct {
	Type ClientMessageType `json:"type"`
}

type ClientMessageType string

const (
	// ClientMessageTypeRefresh asks for the current state.
	ClientMessageTypeRefresh ClientMessageType = "refresh"
	// ClientMessageTypeTime asks for the corrected time.
	ClientMessageTypeTime ClientMessageType = "time"
)

// APIResponse is a generic admin API reply.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Admin API requests.

type SetTokenRequest struct {
	Token string `json:"token"`
}

type ShowErrorRequest struct {
	Message string `json:"message"`
	Icon    string `json:"icon,omitempty"`
}

type SetSubtitleRequest struct {
	Subtitle string `json:"subtitle"`
}

type SetErrorMessageRequest struct {
	Message string `json:"message"`
}

type SyncRequest struct {
	Host string `json:"host,omitempty"`
}

type SyncResponse struct {
	Synced bool     `json:"synced"`
	Time   TimeView `json:"time"`
}
