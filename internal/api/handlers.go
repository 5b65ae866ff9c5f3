package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"secureentry/internal/display"
	"secureentry/internal/models"

	"github.com/h2non/filetype"
)

// StateSource is the presenter as seen by the display API.
type StateSource interface {
	View() models.StateView
}

type API struct {
	state StateSource
	clock display.TimeSource
}

func New(state StateSource, clock display.TimeSource) *API {
	return &API{state: state, clock: clock}
}

func (a *API) StateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := a.state.View()
	if r.URL.Query().Get("image") == "0" {
		view.Image = nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		slog.Error("failed to encode state response", "error", err)
	}
}

func (a *API) BarcodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := a.state.View()
	if len(view.Image) == 0 {
		http.Error(w, "No image", http.StatusNotFound)
		return
	}

	kind, err := filetype.Match(view.Image)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(view.Image) {
		slog.Error("rendered image has unexpected type", "kind", view.Kind, "error", err)
		http.Error(w, "Invalid image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", kind.MIME.Value)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(view.Image); err != nil {
		slog.Error("failed to write image", "error", err)
	}
}

func (a *API) TimeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(display.NewTimeView(a.clock)); err != nil {
		slog.Error("failed to encode time response", "error", err)
	}
}
