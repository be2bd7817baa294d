// services/relay_mailer.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"festival-ticketing/utils"
)

// RelayMailer posts emails as JSON to an HTTP relay (e.g. a hosted script
// that sends through the organiser's mailbox).
type RelayMailer struct {
	URL    string
	Client *http.Client
}

type relayRequest struct {
	Recipient    string `json:"recipient"`
	Subject      string `json:"subject"`
	DisplayName  string `json:"displayName"`
	Title        string `json:"title"`
	PlainMessage string `json:"plainMessage"`
	HTMLBody     string `json:"htmlBody"`
}

type relayResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

var ErrRelayNotConfigured = errors.New("email relay URL is not configured")

func NewRelayMailer(url string) *RelayMailer {
	return &RelayMailer{
		URL:    url,
		Client: utils.NewHTTPClient(10 * time.Second),
	}
}

func (m *RelayMailer) Send(ctx context.Context, e Email) error {
	if m.URL == "" {
		return ErrRelayNotConfigured
	}

	jsonData, err := json.Marshal(relayRequest{
		Recipient:    e.Recipient,
		Subject:      e.Subject,
		DisplayName:  e.DisplayName,
		Title:        e.Title,
		PlainMessage: e.PlainMessage,
		HTMLBody:     e.HTMLBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email relay returned %d: %s", resp.StatusCode, string(body))
	}

	// Some relays answer 200 with {"success": false}.
	var out relayResponse
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &out) == nil && out.Success != nil && !*out.Success {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return fmt.Errorf("email relay rejected message: %s", msg)
	}
	return nil
}
