package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"ginie-settings-service/config"
)

// Service sends transactional email over SMTP. Configuration comes from the
// service config; when SMTP is not configured every send returns an error and
// callers fall back to logging the action instead.
type Service struct {
	config config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg config.EmailConfig) *Service {
	return &Service{config: cfg}
}

// IsConfigured checks whether the required SMTP settings are present
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends an email using the configured SMTP server
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("SMTP is not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	message := []byte(
		"From: " + from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body + "\r\n",
	)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	addr := s.config.Host + ":" + s.config.Port

	// Port 465 is implicit TLS; 587 and 25 go through smtp.SendMail which
	// upgrades via STARTTLS when the server offers it.
	var err error
	if s.config.Port == "465" {
		err = s.sendEmailTLS(addr, auth, s.config.From, []string{to}, message)
	} else {
		err = smtp.SendMail(addr, auth, s.config.From, []string{to}, message)
	}
	if err != nil {
		return fmt.Errorf("SMTP error: %w", err)
	}
	return nil
}

// sendEmailTLS sends email over an implicit TLS connection (port 465)
func (s *Service) sendEmailTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host := strings.Split(addr, ":")[0]
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range to {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// SendPasswordReset sends a password reset link to the user
func (s *Service) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	subject := "Reset Your Password"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; padding: 12px 24px; background-color: #4F46E5; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Password Reset</h1>
        </div>
        <div class="content">
            <p>We received a request to reset the password on your account.</p>
            <p style="text-align: center;">
                <a href="%s" class="button">Reset Password</a>
            </p>
            <p>This link expires in 1 hour. If you did not request a reset, you can safely ignore this email.</p>
        </div>
        <div class="footer">
            <p>Ginie Settings Service</p>
        </div>
    </div>
</body>
</html>`, resetURL)

	return s.SendEmail(ctx, to, subject, body)
}
