// backend/src/services/email_service.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/shopspring/decimal"

	"github.com/username/cobranzas/backend/src/config"
	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/models"
)

// EmailService sends collection reminders to client contacts.
type EmailService interface {
	SendCollectionReminder(toEmail, contactName, clientName string, entries []models.LedgerEntry) error
}

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		return &SMTPEmailService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
			SenderName:   config.Cfg.SenderName,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

// reminderSubject and the body builders are shared by every provider so the
// message reads the same no matter how it travels.
func reminderSubject(clientName string) string {
	return fmt.Sprintf("Recordatorio de facturas pendientes - %s", clientName)
}

func openInvoices(entries []models.LedgerEntry) ([]models.LedgerEntry, decimal.Decimal) {
	var open []models.LedgerEntry
	total := decimal.Zero
	for _, e := range entries {
		if e.Amount.Sign() > 0 {
			open = append(open, e)
			total = total.Add(e.Amount)
		}
	}
	return open, total
}

func reminderPlainBody(contactName, clientName string, entries []models.LedgerEntry) string {
	open, total := openInvoices(entries)
	greeting := contactName
	if greeting == "" {
		greeting = clientName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Estimado/a %s,\n\n", greeting)
	fmt.Fprintf(&b, "Le recordamos que la cuenta de %s registra las siguientes facturas pendientes:\n\n", clientName)
	for _, e := range open {
		date := "s/f"
		if e.Date != nil {
			date = e.Date.Format("02/01/2006")
		}
		fmt.Fprintf(&b, "  - %s %s (%s): $%s", e.Type, e.Number, date, e.Amount.StringFixed(2))
		if e.DaysOverdue > 0 {
			fmt.Fprintf(&b, " - %d días de atraso", e.DaysOverdue)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTotal pendiente: $%s\n\n", total.StringFixed(2))
	b.WriteString("Por favor, comuníquese con nosotros para coordinar el pago.\n\nSaludos cordiales")
	return b.String()
}

func reminderHTMLBody(contactName, clientName string, entries []models.LedgerEntry) string {
	open, total := openInvoices(entries)
	greeting := contactName
	if greeting == "" {
		greeting = clientName
	}

	var rows strings.Builder
	for _, e := range open {
		date := "s/f"
		if e.Date != nil {
			date = e.Date.Format("02/01/2006")
		}
		overdue := ""
		if e.DaysOverdue > 0 {
			overdue = fmt.Sprintf("%d días", e.DaysOverdue)
		}
		fmt.Fprintf(&rows, `<tr><td>%s %s</td><td>%s</td><td style="text-align:right;">$%s</td><td>%s</td></tr>`,
			e.Type, e.Number, date, e.Amount.StringFixed(2), overdue)
	}

	return fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<p>Estimado/a %s,</p>
			<p>Le recordamos que la cuenta de <strong>%s</strong> registra las siguientes facturas pendientes:</p>
			<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
				<tr><th>Comprobante</th><th>Fecha</th><th>Importe</th><th>Atraso</th></tr>
				%s
			</table>
			<p><strong>Total pendiente: $%s</strong></p>
			<p>Por favor, comuníquese con nosotros para coordinar el pago.</p>
			<p>Saludos cordiales</p>
		</body>
	</html>`, greeting, clientName, rows.String(), total.StringFixed(2))
}

type SMTPEmailService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	SenderName   string
}

func (s *SMTPEmailService) SendCollectionReminder(toEmail, contactName, clientName string, entries []models.LedgerEntry) error {
	from := s.SenderEmail
	to := []string{toEmail}
	subject := reminderSubject(clientName)
	body := reminderPlainBody(contactName, clientName, entries)

	header := make(map[string]string)
	header["From"] = from
	header["To"] = toEmail
	header["Subject"] = subject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body
	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	err := smtp.SendMail(addr, auth, from, to, []byte(message))
	if err != nil {
		logger.L.Error("Failed to send collection reminder via SMTP", "error", err, "to", toEmail, "client", clientName)
		return fmt.Errorf("failed to send collection reminder via SMTP: %w", err)
	}
	logger.L.Info("Collection reminder sent successfully via SMTP", "to", toEmail, "client", clientName)
	return nil
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) SendCollectionReminder(toEmail, contactName, clientName string, entries []models.LedgerEntry) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := reminderSubject(clientName)

	message := s.mg.NewMessage(from, subject, reminderPlainBody(contactName, clientName, entries), toEmail)
	message.SetHtml(reminderHTMLBody(contactName, clientName, entries))
	message.AddTag("collection-reminder")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send collection reminder via Mailgun", "error", err, "to", toEmail, "client", clientName, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Collection reminder sent successfully via Mailgun", "to", toEmail, "client", clientName, "id", id, "mailgunResp", resp)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendCollectionReminder(toEmail, contactName, clientName string, entries []models.LedgerEntry) error {
	_, total := openInvoices(entries)
	logger.L.Info("MockEmailService: Would send collection reminder.",
		"to", toEmail, "contact", contactName, "client", clientName, "totalPending", total.StringFixed(2))
	return nil
}
