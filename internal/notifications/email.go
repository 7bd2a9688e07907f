package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
)

const (
	defaultSMTPPort = 587

	leadTimestampLayout = "02/01/2006 15:04"

	errorMessageSendAlert = "notifications: send lead alert"
)

var (
	ErrMissingSMTPHost  = errors.New("notifications: smtp host is required")
	ErrMissingRecipient = errors.New("notifications: alert recipient is required")
	ErrMissingSender    = errors.New("notifications: sender address is required")
)

// SMTPConfig describes the mail relay and the alert recipient.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string
}

// Enabled reports whether enough settings exist to send mail.
func (config SMTPConfig) Enabled() bool {
	return strings.TrimSpace(config.Host) != "" && strings.TrimSpace(config.Recipient) != ""
}

// MailSender delivers a composed message. *gomail.Dialer satisfies it.
type MailSender interface {
	DialAndSend(messages ...*gomail.Message) error
}

// EmailAlerter emails a short summary of every merchant lead that reached the webhook.
type EmailAlerter struct {
	sender    MailSender
	from      string
	recipient string
	logger    *zap.Logger
}

// NewEmailAlerter validates the SMTP settings and dials lazily on each alert.
func NewEmailAlerter(config SMTPConfig, logger *zap.Logger) (*EmailAlerter, error) {
	host := strings.TrimSpace(config.Host)
	if host == "" {
		return nil, ErrMissingSMTPHost
	}
	port := config.Port
	if port <= 0 {
		port = defaultSMTPPort
	}
	from := strings.TrimSpace(config.From)
	if from == "" {
		from = strings.TrimSpace(config.Username)
	}
	dialer := gomail.NewDialer(host, port, config.Username, config.Password)
	return newEmailAlerter(dialer, from, config.Recipient, logger)
}

// NewEmailAlerterWithSender builds an alerter around a custom sender.
func NewEmailAlerterWithSender(sender MailSender, from string, recipient string, logger *zap.Logger) (*EmailAlerter, error) {
	return newEmailAlerter(sender, strings.TrimSpace(from), recipient, logger)
}

func newEmailAlerter(sender MailSender, from string, recipient string, logger *zap.Logger) (*EmailAlerter, error) {
	if from == "" {
		return nil, ErrMissingSender
	}
	normalizedRecipient := strings.TrimSpace(recipient)
	if normalizedRecipient == "" {
		return nil, ErrMissingRecipient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailAlerter{
		sender:    sender,
		from:      from,
		recipient: normalizedRecipient,
		logger:    logger,
	}, nil
}

// AlertLead sends the lead summary. Failures are returned and logged; the lead itself is unaffected.
func (alerter *EmailAlerter) AlertLead(ctx context.Context, lead model.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message := gomail.NewMessage()
	message.SetHeader("From", alerter.from)
	message.SetHeader("To", alerter.recipient)
	message.SetHeader("Subject", LeadSubject(lead))
	message.SetBody("text/plain", LeadSummary(lead))

	if err := alerter.sender.DialAndSend(message); err != nil {
		alerter.logger.Warn("lead_alert_send_failed", zap.Error(err), zap.String("lead_id", lead.ID))
		return fmt.Errorf("%s: %w", errorMessageSendAlert, err)
	}
	return nil
}

// LeadSubject is the alert subject line.
func LeadSubject(lead model.Lead) string {
	return fmt.Sprintf("Novo lead: %s", strings.TrimSpace(lead.Name))
}

// LeadSummary renders the plain-text alert body.
func LeadSummary(lead model.Lead) string {
	builder := &strings.Builder{}
	_, _ = fmt.Fprintf(builder, "Um novo lojista enviou o formulário.\n\n")
	_, _ = fmt.Fprintf(builder, "Nome: %s\n", strings.TrimSpace(lead.Name))
	_, _ = fmt.Fprintf(builder, "WhatsApp: %s\n", lead.WhatsApp)
	if lead.HasCNPJ != "" {
		_, _ = fmt.Fprintf(builder, "Possui CNPJ: %s\n", lead.HasCNPJ)
	}
	if lead.StoreType != "" {
		_, _ = fmt.Fprintf(builder, "Tipo de loja: %s\n", lead.StoreType)
	}
	if lead.CEP != "" {
		_, _ = fmt.Fprintf(builder, "CEP: %s\n", lead.CEP)
	}
	if !lead.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(builder, "Recebido em: %s\n", lead.CreatedAt.In(time.UTC).Format(leadTimestampLayout)+" UTC")
	}
	_, _ = fmt.Fprintf(builder, "ID: %s\n", lead.ID)
	return builder.String()
}
