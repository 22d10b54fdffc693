package email

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/target/mmk-alert-router/internal/adapters/plugins/httpsink"
)

// ResendProvider sends through the Resend API.
type ResendProvider struct {
	client   *resend.Client
	redactor httpsink.Redactor
}

// NewResendProvider builds a Resend client from cfg.
func NewResendProvider(cfg Config) (*ResendProvider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	client := resend.NewCustomClient(httpsink.NewClient(cfg.Timeout), key)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendProvider{client: client, redactor: httpsink.NewRedactor(key)}, nil
}

// Name implements Provider.
func (p *ResendProvider) Name() string { return ProviderResend }

// Send implements Provider.
func (p *ResendProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	_, err := p.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
	})
	if err != nil {
		return errors.New(p.redactor.RedactString(err.Error()))
	}
	return nil
}
