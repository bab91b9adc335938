package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/openestate/watchtower/internal/models"
)

// EmailTransport delivers notifications via SMTP using the channel's
// email configuration.
type EmailTransport struct{}

// NewEmailTransport creates the email transport.
func NewEmailTransport() EmailTransport {
	return EmailTransport{}
}

// Type returns "email".
func (EmailTransport) Type() models.ChannelType {
	return models.ChannelEmail
}

// Send builds an RFC 2822 message and delivers it to every recipient.
func (t EmailTransport) Send(ctx context.Context, channel *models.NotificationChannel, content Content, _ *models.ActiveAlert) error {
	cfg := channel.Email
	if cfg == nil {
		return fmt.Errorf("%w: email config missing on channel %q", ErrConfig, channel.Name)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	msg := buildMessage(cfg, content)
	if err := sendMail(ctx, cfg, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// buildMessage assembles headers and a plain text body.
func buildMessage(cfg *models.EmailConfig, content Content) []byte {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(cfg.Recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", content.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(content.Body)
	msg.WriteString("\r\n")
	return []byte(msg.String())
}

// sendMail connects, authenticates when credentials are set, and
// submits the message.
func sendMail(ctx context.Context, cfg *models.EmailConfig, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	var client *smtp.Client
	var err error
	if cfg.Port == 465 {
		// Implicit TLS (SMTPS)
		client, err = connectImplicitTLS(addr, cfg.Host, tlsConfig)
	} else {
		// STARTTLS (port 587 or 25)
		client, err = connectSTARTTLS(ctx, addr, cfg.Host, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if cfg.Username != "" && cfg.Password != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(extractEmail(cfg.From)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data: %w", err)
	}
	return client.Quit()
}

// connectImplicitTLS connects using implicit TLS (port 465).
func connectImplicitTLS(addr, host string, tlsConfig *tls.Config) (*smtp.Client, error) {
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, host)
}

// connectSTARTTLS connects using STARTTLS (port 587 or 25).
func connectSTARTTLS(ctx context.Context, addr, host string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}
	return client, nil
}

// extractEmail extracts the address from a "Name <email>" format.
func extractEmail(addr string) string {
	if start := strings.Index(addr, "<"); start != -1 {
		if end := strings.Index(addr, ">"); end != -1 {
			return addr[start+1 : end]
		}
	}
	return addr
}
