package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/carteraclaro/backend/src/config"
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/utils"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		logger.L.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
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
			reportEmail: config.Cfg.ReportEmail,
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
			ReportEmail:  config.Cfg.ReportEmail,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

// syncReportBody renders the plain-text report shared by every provider.
func syncReportBody(summary *SyncSummary) (subject, body string) {
	subject = fmt.Sprintf("CarteraClaro sync report %s", summary.FinishedAt.Format(utils.SheetDateFormat))
	if summary.Error != "" {
		subject = fmt.Sprintf("CarteraClaro sync FAILED %s", summary.FinishedAt.Format(utils.SheetDateFormat))
	}
	body = fmt.Sprintf(`Sync run %s finished with status %q.

Period:             %s to %s
Transfers fetched:  %d
Closed positions:   %d
Open buys:          %d
Open sells:         %d
Rows appended:      %d

Started:  %s
Finished: %s`,
		summary.RunID, summary.Status,
		summary.Since.Format(utils.SheetDateFormat), summary.To.Format(utils.SheetDateFormat),
		summary.TransfersFetched,
		summary.ClosedPositions,
		summary.OpenBuys,
		summary.OpenSells,
		summary.RowsAppended,
		summary.StartedAt.Format(time.RFC3339),
		summary.FinishedAt.Format(time.RFC3339))
	if summary.Error != "" {
		body += "\n\nError: " + summary.Error
	}
	return subject, body
}

type SMTPEmailService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	ReportEmail  string
}

func (s *SMTPEmailService) SendSyncReport(summary *SyncSummary) error {
	subject, body := syncReportBody(summary)

	header := make(map[string]string)
	header["From"] = s.SenderEmail
	header["To"] = s.ReportEmail
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
	err := smtp.SendMail(addr, auth, s.SenderEmail, []string{s.ReportEmail}, []byte(message))
	if err != nil {
		logger.L.Error("Failed to send sync report via SMTP", "error", err, "to", s.ReportEmail)
		return fmt.Errorf("failed to send sync report via SMTP: %w", err)
	}
	logger.L.Info("Sync report sent successfully via SMTP", "to", s.ReportEmail, "runID", summary.RunID)
	return nil
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	reportEmail string
}

func (s *MailgunEmailService) SendSyncReport(summary *SyncSummary) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject, body := syncReportBody(summary)

	message := s.mg.NewMessage(from, subject, body, s.reportEmail)
	message.AddTag("sync-report")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send sync report via Mailgun", "error", err, "to", s.reportEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Sync report sent successfully via Mailgun", "to", s.reportEmail, "id", id, "mailgunResp", resp)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendSyncReport(summary *SyncSummary) error {
	logger.L.Info("MockEmailService: Would send sync report.",
		"runID", summary.RunID,
		"closedPositions", summary.ClosedPositions,
		"rowsAppended", summary.RowsAppended)
	return nil
}
