// Package mailer delivers the transactional report email.
package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendConfig carries credentials for the Resend API.
type ResendConfig struct {
	APIKey      string
	FromAddress string
	BrandName   string
}

// Resend sends report emails through the Resend API with the PDF attached.
type Resend struct {
	client *resend.Client
	cfg    ResendConfig
	logger *zap.Logger
}

// NewResend builds a Resend-backed mailer.
func NewResend(cfg ResendConfig, logger *zap.Logger) (*Resend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("email.api_key is required")
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("email.from_address is required")
	}
	if cfg.BrandName == "" {
		cfg.BrandName = "GradeKit"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resend{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// SendReport implements audit.Mailer.
func (m *Resend) SendReport(ctx context.Context, to string, websiteURL string, reportURL string, pdf []byte) error {
	if to == "" {
		return fmt.Errorf("recipient address is required")
	}
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", m.cfg.BrandName, m.cfg.FromAddress),
		To:      []string{to},
		Subject: fmt.Sprintf("Your website audit for %s is ready", websiteURL),
		Html:    reportBody(m.cfg.BrandName, websiteURL, reportURL),
	}
	if len(pdf) > 0 {
		params.Attachments = []*resend.Attachment{{
			Filename:    "website-audit.pdf",
			Content:     pdf,
			ContentType: "application/pdf",
		}}
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	m.logger.Info("report email sent",
		zap.String("to", to),
		zap.String("email_id", sent.Id),
	)
	return nil
}

func reportBody(brand, websiteURL, reportURL string) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:560px">
<h2>Your %s audit is ready</h2>
<p>We finished grading <strong>%s</strong>. Your full report is attached as a PDF.</p>
<p>You can also <a href="%s">view it online</a> any time.</p>
<p>&mdash; The %s team</p>
</div>`, brand, websiteURL, reportURL, brand)
}
