// Package totp derives time-window one-time codes from raw secret bytes.
//
// A Generator is a pure function of (secret, time, Params): the same inputs
// always produce the same Window. Code derivation itself is delegated to
// github.com/pquerna/otp.
package totp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	DefaultDigits    = 6
	DefaultPeriod    = 15 * time.Second
	DefaultAlgorithm = AlgorithmSHA1
)

// Algorithm selects the HMAC hash function.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

var (
	// ErrGenerate is the root of every code generation failure.
	// Callers treat it as "no code available".
	ErrGenerate = errors.New("totp: generation failed")
	// ErrEmptySecret is returned for a nil or zero-length secret.
	ErrEmptySecret = fmt.Errorf("%w: empty secret", ErrGenerate)
	// ErrInvalidTime is returned for timestamps before the Unix epoch.
	ErrInvalidTime = fmt.Errorf("%w: time before unix epoch", ErrGenerate)
	// ErrInvalidParams indicates the generator parameters are invalid.
	ErrInvalidParams = errors.New("totp: invalid parameters")
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ParseAlgorithm maps a case-insensitive name onto an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "SHA1":
		return AlgorithmSHA1, nil
	case "SHA256":
		return AlgorithmSHA256, nil
	case "SHA512":
		return AlgorithmSHA512, nil
	default:
		return "", fmt.Errorf("%w: algorithm must be SHA1, SHA256, or SHA512, got %q", ErrInvalidParams, name)
	}
}

func (a Algorithm) otp() (otp.Algorithm, bool) {
	switch a {
	case AlgorithmSHA1:
		return otp.AlgorithmSHA1, true
	case AlgorithmSHA256:
		return otp.AlgorithmSHA256, true
	case AlgorithmSHA512:
		return otp.AlgorithmSHA512, true
	}
	return 0, false
}

// Params are fixed per Generator. Zero values take the defaults.
type Params struct {
	Digits    int
	Period    time.Duration
	Algorithm Algorithm
}

func (p Params) withDefaults() Params {
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}
	return p
}

func (p Params) validate() error {
	if p.Digits < 6 || p.Digits > 8 {
		return fmt.Errorf("%w: digits must be 6, 7, or 8", ErrInvalidParams)
	}
	if p.Period < time.Second || p.Period%time.Second != 0 {
		return fmt.Errorf("%w: period must be a positive whole number of seconds", ErrInvalidParams)
	}
	if _, ok := p.Algorithm.otp(); !ok {
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParams, p.Algorithm)
	}
	return nil
}

// Window is a code together with the start of the time window it belongs to.
type Window struct {
	Code  string
	Start time.Time
}

// Generator derives codes for one set of Params. It is safe for concurrent use.
type Generator struct {
	params Params
	algo   otp.Algorithm
	period int64
}

// New validates params and returns a Generator.
func New(params Params) (*Generator, error) {
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, err
	}
	algo, _ := params.Algorithm.otp()
	return &Generator{
		params: params,
		algo:   algo,
		period: int64(params.Period / time.Second),
	}, nil
}

// Default returns a Generator with 6 digits, a 15 second period and SHA1.
func Default() *Generator {
	g, err := New(Params{})
	if err != nil {
		panic(err)
	}
	return g
}

// Params returns the generator parameters.
func (g *Generator) Params() Params {
	return g.params
}

// Counter returns floor(now / period).
func (g *Generator) Counter(now time.Time) (uint64, error) {
	ts := now.Unix()
	if ts < 0 {
		return 0, ErrInvalidTime
	}
	return uint64(ts / g.period), nil
}

// Generate returns the code for the window containing now.
func (g *Generator) Generate(secret []byte, now time.Time) (Window, error) {
	if len(secret) == 0 {
		return Window{}, ErrEmptySecret
	}
	counter, err := g.Counter(now)
	if err != nil {
		return Window{}, err
	}

	code, err := hotp.GenerateCodeCustom(secretEncoding.EncodeToString(secret), counter, hotp.ValidateOpts{
		Digits:    otp.Digits(g.params.Digits),
		Algorithm: g.algo,
	})
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrGenerate, err)
	}

	return Window{
		Code:  code,
		Start: time.Unix(int64(counter)*g.period, 0).UTC(),
	}, nil
}
