package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"secureentry/internal/config"
	"secureentry/internal/models"
)

// SetToken hands a token to a running server through the admin API.
func SetToken(token string, cfg *config.Config) error {
	reqBody, err := json.Marshal(models.SetTokenRequest{Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var result models.APIResponse
	if err := call(http.MethodPost, adminURL(cfg, "/admin/token"), reqBody, &result); err != nil {
		return err
	}

	fmt.Printf("Token set: %s\n", result.Message)
	return nil
}

// ClearToken removes the token from a running server.
func ClearToken(cfg *config.Config) error {
	var result models.APIResponse
	if err := call(http.MethodDelete, adminURL(cfg, "/admin/token"), nil, &result); err != nil {
		return err
	}

	fmt.Println(result.Message)
	return nil
}

// Sync forces a clock sync on a running server. An empty host uses the
// server's configured host.
func Sync(host string, cfg *config.Config) error {
	reqBody, err := json.Marshal(models.SyncRequest{Host: host})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var result models.SyncResponse
	if err := call(http.MethodPost, adminURL(cfg, "/admin/sync"), reqBody, &result); err != nil {
		return err
	}

	fmt.Printf("Synced:  %t\n", result.Synced)
	fmt.Printf("Offset:  %dms\n", result.Time.Offset)
	return nil
}

func adminURL(cfg *config.Config, path string) string {
	return fmt.Sprintf("http://%s%s", cfg.AdminAddr, path)
}

func call(method, url string, body []byte, result any) error {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call admin API: %w. Is the server running?", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("admin API request failed (Status: %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
