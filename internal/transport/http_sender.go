package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appErrors "github.com/unclebandit/mailpulse-backend/internal/errors"
)

// maxErrorBodyBytes caps how much of a provider error response is kept.
const maxErrorBodyBytes = 2048

// HTTPSender posts messages to a transactional email HTTP API
// (Resend-style: POST {base}/emails with a bearer key).
type HTTPSender struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPSender(baseURL, apiKey string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type sendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send delivers one email. Any network error, timeout or non-2xx response is
// returned as a transport failure with the provider's message attached.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	payload := sendPayload{
		From:    fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail),
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return appErrors.NewTransportFailure(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		providerMsg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return appErrors.NewTransportFailure(
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, string(providerMsg)),
		)
	}

	return nil
}

var _ Sender = (*HTTPSender)(nil)
