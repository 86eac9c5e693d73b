package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ResendMailer delivers email requests through the Resend HTTP API
type ResendMailer struct {
	client *resty.Client
	from   string
	appURL string
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendMailer creates a mailer for the Resend API at baseURL
func NewResendMailer(baseURL, apiKey, from, appURL string) *ResendMailer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	return &ResendMailer{client: client, from: from, appURL: appURL}
}

// Send renders and posts one email
func (m *ResendMailer) Send(ctx context.Context, req Request) error {
	if req.Recipient.Email == "" {
		return nil
	}

	msg, err := Render(req, m.appURL)
	if err != nil {
		return err
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(resendEmail{
			From:    m.from,
			To:      []string{req.Recipient.Email},
			Subject: msg.Subject,
			HTML:    msg.HTML,
		}).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("failed to call email API: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("email API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LogSender only logs what would have been delivered. It is used when no
// delivery backend is configured for a channel.
type LogSender struct {
	logger *zap.Logger
	appURL string
}

// NewLogSender creates a sender that logs requests
func NewLogSender(logger *zap.Logger, appURL string) *LogSender {
	return &LogSender{logger: logger, appURL: appURL}
}

// Send logs the rendered subject of req
func (s *LogSender) Send(_ context.Context, req Request) error {
	msg, err := Render(req, s.appURL)
	if err != nil {
		return err
	}
	s.logger.Info("notification simulated",
		zap.String("channel", string(req.Channel)),
		zap.String("kind", string(req.Kind)),
		zap.String("to", req.Recipient.Email),
		zap.String("recipient", req.Recipient.Name),
		zap.String("subject", msg.Subject),
	)
	return nil
}
