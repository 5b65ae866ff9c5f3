package presenter

import (
	"strings"
	"sync"
	"testing"
	"time"

	"secureentry/internal/entry"
	"secureentry/internal/models"
	"secureentry/internal/rotating"
	"secureentry/internal/symbology"
)

type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type tickers struct {
	mu   sync.Mutex
	all  []*fakeTicker
	intv []time.Duration
}

func (t *tickers) New(d time.Duration) Ticker {
	t.mu.Lock()
	defer t.mu.Unlock()
	ft := &fakeTicker{c: make(chan time.Time)}
	t.all = append(t.all, ft)
	t.intv = append(t.intv, d)
	return ft
}

func (t *tickers) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.all)
}

func (t *tickers) Last() *fakeTicker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.all[len(t.all)-1]
}

type fakeComposer struct {
	mu      sync.Mutex
	payload string
	err     error
}

func (f *fakeComposer) Payload(cred entry.RotatingPDF417) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return cred.Token + "::" + f.payload, nil
}

func (f *fakeComposer) Set(payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payload = payload
}

type fakeSyncer struct {
	calls int
	force bool
}

func (f *fakeSyncer) Sync(force bool, host string, done func(bool)) {
	f.calls++
	f.force = force
	if done != nil {
		done(true)
	}
}

type harness struct {
	p        *Presenter
	tickers  *tickers
	composer *fakeComposer
	renderer *fakeRenderer
	states   chan State
}

func newHarness(t *testing.T, mod func(*Config)) *harness {
	t.Helper()
	h := &harness{
		tickers:  &tickers{},
		composer: &fakeComposer{payload: "000001"},
		renderer: &fakeRenderer{},
		states:   make(chan State, 100),
	}
	cfg := Config{
		Renderer:      h.renderer,
		Composer:      h.composer,
		NewTicker:     h.tickers.New,
		StateCallback: func(s State) { h.states <- s },
	}
	if mod != nil {
		mod(&cfg)
	}
	h.p = New(cfg)
	t.Cleanup(h.p.Close)
	return h
}

// next returns the next published state.
func (h *harness) next(t *testing.T) State {
	t.Helper()
	select {
	case s := <-h.states:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no state published")
		return nil
	}
}

func (h *harness) drain() {
	for {
		select {
		case <-h.states:
		default:
			return
		}
	}
}

// tick fires the live ticker and waits for the resulting state.
func (h *harness) tick(t *testing.T) State {
	t.Helper()
	h.drain()
	select {
	case h.tickers.Last().c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("ticker goroutine not listening")
	}
	return h.next(t)
}

func rotatingToken(t *testing.T, barcode string) string {
	t.Helper()
	token, err := entry.Encode(entry.Fields{Barcode: barcode, Token: "T", CustomerKey: "0102", RenderType: entry.RenderTypeRotatingSymbology})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestPresenter_InitialState(t *testing.T) {
	h := newHarness(t, nil)
	if _, ok := h.p.State().(None); !ok {
		t.Errorf("expected None, got %#v", h.p.State())
	}

	img, _ := symbology.Placeholder(10, 10)
	h = newHarness(t, func(c *Config) { c.Placeholder = &img })
	if _, ok := h.p.State().(Loading); !ok {
		t.Errorf("expected Loading, got %#v", h.p.State())
	}
}

func TestPresenter_SyncsClockOnce(t *testing.T) {
	s := &fakeSyncer{}
	newHarness(t, func(c *Config) { c.Clock = s })
	if s.calls != 1 || s.force {
		t.Errorf("expected one non-forced sync, got calls=%d force=%v", s.calls, s.force)
	}
}

func TestPresenter_Tokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  models.StateKind
	}{
		{"raw barcode", "123456789012", models.StateKindQRCode},
		{"invalid", "nope", models.StateKindError},
		{"static", mustToken(t, entry.Fields{Barcode: "ABC", RenderType: entry.RenderTypeRotatingSymbology}), models.StateKindStaticPDF417},
		{"rotating", rotatingToken(t, ""), models.StateKindRotatingPDF417},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.drain()
			h.p.SetToken(tt.token)

			if s := h.next(t); Kind(s) != models.StateKindNone {
				t.Errorf("expected a reset to None first, got %#v", s)
			}
			if s := h.next(t); Kind(s) != tt.want {
				t.Errorf("expected %s, got %#v", tt.want, s)
			}
		})
	}
}

func mustToken(t *testing.T, f entry.Fields) string {
	t.Helper()
	token, err := entry.Encode(f)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestPresenter_ErrorUsesConfiguredMessage(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.ErrorMessage = "Try again" })
	h.p.SetToken("nope")
	if got := h.p.State(); got != (Error{Message: "Try again", Icon: IconAlert}) {
		t.Errorf("unexpected state %#v", got)
	}

	h.p.SetErrorMessage("Ask staff")
	if got := h.p.State(); got != (Error{Message: "Ask staff", Icon: IconAlert}) {
		t.Errorf("unexpected state %#v", got)
	}
}

func TestPresenter_UnchangedTokenIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetToken("123456789012")
	h.drain()

	h.p.SetToken("123456789012")
	select {
	case s := <-h.states:
		t.Errorf("expected no publication, got %#v", s)
	default:
	}
	if h.renderer.qrCalls != 1 {
		t.Errorf("expected one render, got %d", h.renderer.qrCalls)
	}
}

func TestPresenter_ClearToken(t *testing.T) {
	img, _ := symbology.Placeholder(10, 10)
	h := newHarness(t, func(c *Config) { c.Placeholder = &img })

	h.p.SetToken("123456789012")
	if Kind(h.p.State()) != models.StateKindQRCode {
		t.Fatalf("expected QRCode, got %#v", h.p.State())
	}
	h.p.ClearToken()
	if _, ok := h.p.State().(Loading); !ok {
		t.Errorf("expected Loading, got %#v", h.p.State())
	}
	if h.p.Credential() != nil {
		t.Errorf("expected no credential, got %#v", h.p.Credential())
	}

	// The token can be set again after clearing.
	h.p.SetToken("123456789012")
	if Kind(h.p.State()) != models.StateKindQRCode {
		t.Errorf("expected QRCode, got %#v", h.p.State())
	}
}

func TestPresenter_RotatingTicker(t *testing.T) {
	h := newHarness(t, nil)

	h.p.SetToken(rotatingToken(t, "123456789012"))
	r, ok := h.p.State().(RotatingPDF417)
	if !ok {
		t.Fatalf("expected RotatingPDF417, got %#v", h.p.State())
	}
	if r.Payload != "T::000001" || r.Parity || r.Subtitle != DefaultSubtitle {
		t.Errorf("unexpected state %#v", r)
	}
	if h.tickers.Count() != 1 || h.tickers.intv[0] != DefaultTickInterval {
		t.Fatalf("expected one 1s ticker, got %d", h.tickers.Count())
	}

	// Same window: payload and parity unchanged.
	s := h.tick(t).(RotatingPDF417)
	if s.Payload != "T::000001" || s.Parity {
		t.Errorf("unexpected state after tick %#v", s)
	}

	// New window: parity flips once.
	h.composer.Set("000002")
	s = h.tick(t).(RotatingPDF417)
	if s.Payload != "T::000002" || !s.Parity {
		t.Errorf("unexpected state after payload change %#v", s)
	}
	s = h.tick(t).(RotatingPDF417)
	if !s.Parity {
		t.Errorf("expected parity to stay set, got %#v", s)
	}

	// Staying in rotating never starts another ticker.
	if h.tickers.Count() != 1 {
		t.Errorf("expected one ticker, got %d", h.tickers.Count())
	}

	// Leaving rotating stops it.
	first := h.tickers.Last()
	h.p.ShowError("Gate closed", "")
	if !first.Stopped() {
		t.Error("expected the ticker to stop")
	}
	if got := h.p.State(); got != (CustomError{Message: "Gate closed", Icon: IconAlert}) {
		t.Errorf("unexpected state %#v", got)
	}

	// A new token restarts rotation with a fresh ticker.
	h.p.SetToken(rotatingToken(t, "999999999999"))
	if h.tickers.Count() != 2 {
		t.Errorf("expected a second ticker, got %d", h.tickers.Count())
	}
	if r := h.p.State().(RotatingPDF417); r.Parity {
		t.Errorf("expected parity reset on entry, got %#v", r)
	}
}

func TestPresenter_RotatingFallsBackOnTick(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetToken(rotatingToken(t, "123456789012"))

	h.composer.mu.Lock()
	h.composer.err = rotating.ErrCompose
	h.composer.mu.Unlock()

	s := h.tick(t)
	qr, ok := s.(QRCode)
	if !ok || qr.Barcode != "123456789012" {
		t.Fatalf("expected QR fallback, got %#v", s)
	}
	if !h.tickers.Last().Stopped() {
		t.Error("expected the ticker to stop after leaving rotating")
	}
}

func TestPresenter_NewTokenWhileRotating(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetToken(rotatingToken(t, ""))
	first := h.tickers.Last()

	h.p.SetToken("123456789012")
	if !first.Stopped() {
		t.Error("expected the ticker to stop on reset")
	}
	if Kind(h.p.State()) != models.StateKindQRCode {
		t.Errorf("expected QRCode, got %#v", h.p.State())
	}
}

func TestPresenter_ShowErrorTruncates(t *testing.T) {
	h := newHarness(t, nil)
	h.p.ShowError(strings.Repeat("a", 70), "ticket")

	got, ok := h.p.State().(CustomError)
	if !ok {
		t.Fatalf("expected CustomError, got %#v", h.p.State())
	}
	if got.Message != strings.Repeat("a", 60)+"..." || got.Icon != "ticket" {
		t.Errorf("unexpected state %#v", got)
	}
}

func TestPresenter_ShowErrorKeepsPunctuation(t *testing.T) {
	h := newHarness(t, nil)

	message := strings.Repeat("a", 58) + "'s"
	h.p.ShowError(message, "")

	if got := h.p.View(); got.Message != message || got.Icon != IconAlert {
		t.Errorf("unexpected view message %q icon %q", got.Message, got.Icon)
	}

	h.p.ShowError(`Can't enter "Gate B" & C`, "")
	if got := h.p.View().Message; got != `Can't enter "Gate B" & C` {
		t.Errorf("unexpected view message %q", got)
	}
}

func TestPresenter_SetSubtitle(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetToken(mustToken(t, entry.Fields{Barcode: "ABC", RenderType: entry.RenderTypeRotatingSymbology}))

	h.p.SetSubtitle("")
	s := h.p.State().(StaticPDF417)
	if s.Subtitle != "" || !SubtitleHidden(s) {
		t.Errorf("expected the subtitle to be hidden, got %#v", s)
	}

	// New states use the changed subtitle.
	h.p.SetSubtitle("Show at gate")
	h.p.SetToken(rotatingToken(t, ""))
	if r := h.p.State().(RotatingPDF417); r.Subtitle != "Show at gate" {
		t.Errorf("unexpected subtitle %q", r.Subtitle)
	}
}

func TestPresenter_OnState(t *testing.T) {
	h := newHarness(t, nil)

	var got []models.StateKind
	h.p.OnState(func(s State) { got = append(got, Kind(s)) })
	h.p.SetToken("123456789012")

	if len(got) != 2 || got[0] != models.StateKindNone || got[1] != models.StateKindQRCode {
		t.Errorf("unexpected publications %v", got)
	}
	if v := h.p.View(); v.Kind != models.StateKindQRCode || v.Payload != "123456789012" {
		t.Errorf("unexpected view %+v", v)
	}
}

func TestPresenter_Close(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetToken(rotatingToken(t, ""))
	ticker := h.tickers.Last()

	h.p.Close()
	if !ticker.Stopped() {
		t.Error("expected the ticker to stop on close")
	}

	h.drain()
	h.p.SetToken("123456789012")
	h.p.ShowError("x", "")
	h.p.SetSubtitle("x")
	h.p.ClearToken()
	select {
	case s := <-h.states:
		t.Errorf("expected no publication after close, got %#v", s)
	default:
	}
	if _, ok := h.p.State().(RotatingPDF417); !ok {
		t.Errorf("expected the last state to be kept, got %#v", h.p.State())
	}

	// Close is idempotent.
	h.p.Close()
}
