package entry

import (
	"encoding/base64"
	"encoding/json"
)

// Fields is the JSON document behind a token. Empty strings are omitted.
type Fields struct {
	Barcode     string     `json:"b,omitempty"`
	Token       string     `json:"t,omitempty"`
	CustomerKey string     `json:"ck,omitempty"`
	EventKey    string     `json:"ek,omitempty"`
	RenderType  RenderType `json:"rt,omitempty"`
}

// Encode builds a base64 token from f.
func Encode(f Fields) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
