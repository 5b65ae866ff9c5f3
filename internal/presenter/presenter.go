package presenter

import (
	"log/slog"
	"sync"
	"time"

	"secureentry/internal/content"
	"secureentry/internal/entry"
	"secureentry/internal/models"
	"secureentry/internal/symbology"
)

const (
	DefaultSubtitle     = "Screenshots won't get you in."
	DefaultErrorMessage = "Reload ticket"
	DefaultTickInterval = time.Second
)

// Composer builds the rotating payload of a credential.
type Composer interface {
	Payload(cred entry.RotatingPDF417) (string, error)
}

// Syncer starts a clock synchronization.
type Syncer interface {
	Sync(force bool, host string, done func(synced bool))
}

// Ticker is the subset of *time.Ticker the Presenter uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

type Config struct {
	Renderer symbology.Renderer
	Composer Composer
	// Clock is synced once, without force, when the Presenter is created.
	// Optional.
	Clock        Syncer
	Subtitle     string
	ErrorMessage string
	// Placeholder is shown while no token is set. Optional.
	Placeholder *symbology.Image

	// StateCallback is called with every assigned state, under the
	// Presenter lock. It must not call back into the Presenter.
	StateCallback func(State)

	TickInterval time.Duration
	NewTicker    func(time.Duration) Ticker
}

// Presenter owns the display state of one ticket.
type Presenter struct {
	renderer     symbology.Renderer
	composer     Composer
	placeholder  *symbology.Image
	subtitle     string
	errorMessage string
	tickInterval time.Duration
	newTicker    func(time.Duration) Ticker

	mu        sync.Mutex
	token     string
	hasToken  bool
	cred      entry.Credential
	state     State
	ticker    Ticker
	stopTick  chan struct{}
	closed    bool
	listeners []func(State)
}

func New(config Config) *Presenter {
	if config.Subtitle == "" {
		config.Subtitle = DefaultSubtitle
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = DefaultErrorMessage
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.NewTicker == nil {
		config.NewTicker = newTimeTicker
	}

	p := &Presenter{
		renderer:     config.Renderer,
		composer:     config.Composer,
		placeholder:  config.Placeholder,
		subtitle:     config.Subtitle,
		errorMessage: config.ErrorMessage,
		tickInterval: config.TickInterval,
		newTicker:    config.NewTicker,
		state:        None{},
	}
	if config.StateCallback != nil {
		p.listeners = append(p.listeners, config.StateCallback)
	}

	if config.Clock != nil {
		config.Clock.Sync(false, "", nil)
	}

	p.mu.Lock()
	p.evaluate()
	p.mu.Unlock()

	return p
}

// OnState registers a listener for every state assignment.
func (p *Presenter) OnState(fn func(State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// State returns the current state.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// View describes the current state.
func (p *Presenter) View() models.StateView {
	return Describe(p.State())
}

// Credential returns the decoded credential of the current token, or nil.
func (p *Presenter) Credential() entry.Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cred
}

// SetToken decodes token and shows it. An unchanged token is ignored.
func (p *Presenter) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || (p.hasToken && p.token == token) {
		return
	}

	cred, err := entry.DecodeErr(token)
	if err != nil {
		slog.Debug("presenter: token decoded with fallback", "kind", entry.Kind(cred), "error", err)
	}

	p.token, p.hasToken = token, true
	p.cred = cred
	p.set(Reset(p.state))
	p.evaluate()
}

// ClearToken removes the token and shows the placeholder, if any.
func (p *Presenter) ClearToken() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.hasToken {
		return
	}

	p.token, p.hasToken = "", false
	p.cred = nil
	p.set(Reset(p.state))
	p.evaluate()
}

// ShowError shows a custom error until the next token change. The message is
// sanitized and truncated; an empty icon means IconAlert.
func (p *Presenter) ShowError(message, icon string) {
	if icon == "" {
		icon = IconAlert
	}
	alert := Alert{Message: content.ErrorMessage(message), Icon: icon}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.set(ShowCustomError(p.state, alert))
}

// SetSubtitle changes the PDF417 subtitle. Empty hides it.
func (p *Presenter) SetSubtitle(subtitle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.subtitle = subtitle
	p.set(SetPDF417Subtitle(p.state, subtitle))
}

// SetErrorMessage changes the message of the invalid ticket error.
func (p *Presenter) SetErrorMessage(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.errorMessage = message
	p.set(SetErrorMessage(p.state, message))
}

// Close stops the ticker. Later calls and ticks do nothing.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.stopTicker()
}

// evaluate re-runs the credential to state transition. Must hold mu.
func (p *Presenter) evaluate() {
	alert := Alert{Message: p.errorMessage, Icon: IconAlert}

	switch c := p.cred.(type) {
	case nil:
		s := Reset(p.state)
		if p.placeholder != nil {
			s = SetLoadingImage(s, *p.placeholder)
		}
		p.set(s)

	case entry.Invalid:
		p.set(ShowError(p.state, alert))

	case entry.QRCode:
		p.set(ShowQRCode(p.state, p.renderer, c.Barcode, alert))

	case entry.StaticPDF417:
		p.set(ShowStaticPDF417(p.state, p.renderer, c.Barcode, p.subtitle, alert))

	case entry.RotatingPDF417:
		payload, err := p.composer.Payload(c)
		if err != nil {
			slog.Warn("presenter: failed to compose rotating payload", "error", err)
		}
		p.set(ShowRotatingPDF417(p.state, p.renderer, Rotation{
			Payload:         payload,
			Err:             err,
			FallbackBarcode: c.FallbackBarcode,
			Subtitle:        p.subtitle,
		}, alert))
	}
}

// set assigns the state, starts or stops the ticker and notifies listeners.
// Must hold mu.
func (p *Presenter) set(s State) {
	old := p.state
	p.state = s

	if isRotating(s) {
		if !isRotating(old) {
			p.startTicker()
		}
	} else {
		p.stopTicker()
	}

	for _, fn := range p.listeners {
		fn(s)
	}
}

func (p *Presenter) startTicker() {
	if p.ticker != nil || p.closed {
		return
	}
	t := p.newTicker(p.tickInterval)
	stop := make(chan struct{})
	p.ticker, p.stopTick = t, stop

	go func() {
		for {
			select {
			case <-t.C():
				p.tick(t)
			case <-stop:
				return
			}
		}
	}()
}

func (p *Presenter) stopTicker() {
	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	close(p.stopTick)
	p.ticker, p.stopTick = nil, nil
}

func (p *Presenter) tick(t Ticker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A tick from a stopped ticker can race with stopTicker.
	if p.closed || p.ticker != t {
		return
	}
	p.evaluate()
}
