package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forestguard/internal/models"
)

// SMSSender posts alerts to an SMS gateway's HTTP API.
type SMSSender struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
}

func NewSMSSender(gatewayURL, apiKey string) *SMSSender {
	return &SMSSender{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type smsPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (s *SMSSender) Send(a *models.Alert, recipient string) error {
	payload, err := json.Marshal(smsPayload{
		To:      recipient,
		Message: fmt.Sprintf("[%s] %s", a.Level, a.Message),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.gatewayURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
