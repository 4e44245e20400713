package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultgate/vaultgate/pkg/access"
)

// HTTPMailer delivers email through a relay service's HTTP API
type HTTPMailer struct {
	endpoint string
	apiKey   string
	from     string
	baseURL  string
	client   *http.Client
	log      *logrus.Logger
}

// NewHTTPMailer creates a mailer. baseURL is the public URL links are
// built against.
func NewHTTPMailer(endpoint, apiKey, from, baseURL string, log *logrus.Logger) *HTTPMailer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTPMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

type mailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (m *HTTPMailer) send(ctx context.Context, payload mailPayload) error {
	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail relay returned %d", resp.StatusCode)
	}

	m.log.WithFields(logrus.Fields{
		"to":      payload.To,
		"subject": payload.Subject,
	}).Info("mail sent")
	return nil
}

func (m *HTTPMailer) SendInviteEmail(ctx context.Context, email, inviteUID string, role access.Role) error {
	return m.send(ctx, mailPayload{
		From:    m.from,
		To:      email,
		Subject: "You have been invited to a team",
		Text: fmt.Sprintf("You have been invited to join a team as %s.\n\nAccept the invite: %s/signup?invite_id=%s\n",
			role, m.baseURL, inviteUID),
	})
}

func (m *HTTPMailer) SendVerificationEmail(ctx context.Context, email, verificationUID string) error {
	return m.send(ctx, mailPayload{
		From:    m.from,
		To:      email,
		Subject: "Verify your email address",
		Text: fmt.Sprintf("Confirm your email address by opening this link:\n\n%s/user/verify_email/%s\n",
			m.baseURL, verificationUID),
	})
}
