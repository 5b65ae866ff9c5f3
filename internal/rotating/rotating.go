// Package rotating composes the time-rotating PDF417 payload from a ticket's
// static token and its one-time codes.
package rotating

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"secureentry/internal/clock"
	"secureentry/internal/entry"
	"secureentry/internal/totp"
)

// Delimiter separates payload parts.
const Delimiter = "::"

var ErrCompose = errors.New("rotating: compose failed")

// Composer builds payloads for rotating credentials.
type Composer struct {
	clock    clock.Clock
	customer *totp.Generator
	event    *totp.Generator
}

// NewComposer creates a Composer. customer and event may use different
// parameters; nil means the default generator.
func NewComposer(c clock.Clock, customer, event *totp.Generator) *Composer {
	if customer == nil {
		customer = totp.Default()
	}
	if event == nil {
		event = totp.Default()
	}
	return &Composer{clock: c, customer: customer, event: event}
}

// Payload returns the payload for cred at the current corrected time.
func (c *Composer) Payload(cred entry.RotatingPDF417) (string, error) {
	now := c.clock.Now()

	customer, err := c.customer.Generate(cred.CustomerKey, now)
	if err != nil {
		return "", fmt.Errorf("%w: customer code: %w", ErrCompose, err)
	}

	if !cred.HasEventKey() {
		return Join(cred.Token, customer, nil), nil
	}

	event, err := c.event.Generate(cred.EventKey, now)
	if err != nil {
		return "", fmt.Errorf("%w: event code: %w", ErrCompose, err)
	}
	return Join(cred.Token, customer, &event), nil
}

// Join formats a payload. With an event window it is
// token::eventCode::customerCode::eventWindowStart, otherwise
// token::customerCode.
func Join(token string, customer totp.Window, event *totp.Window) string {
	if event == nil {
		return token + Delimiter + customer.Code
	}
	return strings.Join([]string{
		token,
		event.Code,
		customer.Code,
		strconv.FormatInt(event.Start.Unix(), 10),
	}, Delimiter)
}
