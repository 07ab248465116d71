package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"gopkg.in/gomail.v2"

	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

const (
	ConfirmationSubject  = "Email Confirmation"
	ResetPasswordSubject = "Password Reset"
)

//go:embed templates/*.html
var templateFS embed.FS

// EmailComposer renders the account emails from the embedded templates
type EmailComposer struct {
	templates *template.Template
}

// NewEmailComposer parses the embedded templates
func NewEmailComposer() (*EmailComposer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &EmailComposer{templates: tmpl}, nil
}

// ConfirmationEmail renders the registration confirmation body
func (c *EmailComposer) ConfirmationEmail(code string) (string, error) {
	return c.render("confirmation.html", struct{ Code string }{Code: code})
}

// ResetPasswordEmail renders the password reset body
func (c *EmailComposer) ResetPasswordEmail(code string, validFor time.Duration) (string, error) {
	return c.render("reset_password.html", struct {
		Code     string
		ValidFor string
	}{Code: code, ValidFor: humanDuration(validFor)})
}

func (c *EmailComposer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}

// SMTPMailer sends email through an SMTP relay with STARTTLS
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(host string, port int, username, password, from string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: logger,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("transport", "smtp"),
		slog.String("to", pkglogger.SanitizedEmail(to)),
		slog.String("subject", subject))
	return nil
}

// SESMailer sends email using AWS SES
type SESMailer struct {
	client *ses.Client
	from   string
	logger *slog.Logger
}

// NewSESMailer loads the default AWS configuration for region
func NewSESMailer(ctx context.Context, region, from string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMailer{
		client: ses.NewFromConfig(cfg),
		from:   from,
		logger: logger,
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("transport", "ses"),
		slog.String("to", pkglogger.SanitizedEmail(to)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// LogMailer only logs outgoing mail. Outside production the body is logged
// too so the codes can be read during local development.
type LogMailer struct {
	logger *slog.Logger
	env    string
}

func NewLogMailer(logger *slog.Logger, env string) *LogMailer {
	return &LogMailer{logger: logger, env: env}
}

func (m *LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.Info("email not sent (log transport)",
		slog.String("to", pkglogger.SanitizedEmail(to)),
		slog.String("subject", subject),
		pkglogger.RedactedAttr("body", htmlBody, m.env))
	return nil
}
