package sms

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sender delivers one outbound message. Implementations must return an error
// on any delivery failure so callers can leave their own state untouched.
type Sender interface {
	Send(from, to, body string) error
}

// Credentials are provided per request by the dashboard, not stored.
type Credentials struct {
	AccountSID string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
	From       string `json:"from"`
}

func (c Credentials) Valid() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// TwilioClient talks to the Twilio Messages REST endpoint.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	HTTPClient *http.Client
	BaseURL    string
}

func NewTwilioClient(accountSID, authToken string) *TwilioClient {
	return &TwilioClient{
		AccountSID: accountSID,
		AuthToken:  authToken,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    "https://api.twilio.com",
	}
}

func (c *TwilioClient) Send(from, to, body string) error {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.BaseURL, c.AccountSID)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivery request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("provider rejected message: %s", apiErr.Message)
		}
		return fmt.Errorf("provider rejected message: status %d", resp.StatusCode)
	}
	return nil
}

var _ Sender = (*TwilioClient)(nil)

// SenderFunc adapts a function to the Sender interface, mostly for tests.
type SenderFunc func(from, to, body string) error

func (f SenderFunc) Send(from, to, body string) error {
	return f(from, to, body)
}
