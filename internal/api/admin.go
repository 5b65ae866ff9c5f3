package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"secureentry/internal/content"
	"secureentry/internal/display"
	"secureentry/internal/models"
)

// DefaultSyncTimeout bounds a forced sync requested through the admin API.
const DefaultSyncTimeout = 15 * time.Second

// Controller is the presenter as seen by the admin API.
type Controller interface {
	View() models.StateView
	SetToken(token string)
	ClearToken()
	ShowError(message, icon string)
	SetSubtitle(subtitle string)
	SetErrorMessage(message string)
}

// ClockSyncer is the clock as seen by the admin API.
type ClockSyncer interface {
	display.TimeSource
	SyncContext(ctx context.Context, force bool, host string) bool
}

type AdminHandler struct {
	presenter   Controller
	clock       ClockSyncer
	syncTimeout time.Duration
}

func NewAdminHandler(presenter Controller, clock ClockSyncer) *AdminHandler {
	return &AdminHandler{
		presenter:   presenter,
		clock:       clock,
		syncTimeout: DefaultSyncTimeout,
	}
}

func (h *AdminHandler) SetTokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	h.presenter.SetToken(req.Token)
	view := h.presenter.View()
	slog.Info("admin: token set", "kind", view.Kind)

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: fmt.Sprintf("Showing %s", view.Kind),
	})
}

func (h *AdminHandler) ClearTokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.presenter.ClearToken()
	slog.Info("admin: token cleared")

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Token cleared",
	})
}

func (h *AdminHandler) ShowErrorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ShowErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	h.presenter.ShowError(req.Message, req.Icon)
	view := h.presenter.View()

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: view.Message,
	})
}

func (h *AdminHandler) SetSubtitleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SetSubtitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Empty hides the subtitle.
	h.presenter.SetSubtitle(req.Subtitle)

	writeJSON(w, http.StatusOK, models.APIResponse{Success: true})
}

func (h *AdminHandler) SetErrorMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SetErrorMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	message := content.ErrorMessage(req.Message)
	if message == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	h.presenter.SetErrorMessage(message)

	writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: message})
}

// SyncHandler forces a clock sync and waits for its result. The body is
// optional; an empty host means the configured one. A host other than the one
// being measured is queued and measured after it, so the response always
// reflects the requested host.
func (h *AdminHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Host != "" {
		if err := content.ValidateHost(req.Host); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.syncTimeout)
	defer cancel()

	synced := h.clock.SyncContext(ctx, true, req.Host)
	if !synced {
		slog.Warn("admin: forced sync failed", "host", req.Host)
	}

	writeJSON(w, http.StatusOK, models.SyncResponse{
		Synced: synced,
		Time:   display.NewTimeView(h.clock),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
