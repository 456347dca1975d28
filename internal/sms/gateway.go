package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GatewaySender implementa Sender contra una API de mensajeria compatible
// con Twilio (POST form sobre /Accounts/{sid}/Messages.json).
type GatewaySender struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewGatewaySender construye un cliente apuntando a la API de mensajes.
func NewGatewaySender(baseURL, accountSID, authToken, from string) (*GatewaySender, error) {
	if strings.TrimSpace(accountSID) == "" {
		return nil, fmt.Errorf("sms account sid is required")
	}
	if strings.TrimSpace(authToken) == "" {
		return nil, fmt.Errorf("sms auth token is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("sms from number is required")
	}
	if baseURL == "" {
		baseURL = "https://api.twilio.com/2010-04-01"
	}
	return &GatewaySender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *GatewaySender) Send(ctx context.Context, to string, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("to number is required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		var gw struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &gw); err == nil && gw.Message != "" {
			return fmt.Errorf("sms gateway error: status=%d code=%d message=%s", resp.StatusCode, gw.Code, gw.Message)
		}
		return fmt.Errorf("sms gateway error: status=%d", resp.StatusCode)
	}
	return nil
}
