package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/afigueroah/shucway-app-main-sub002/internal/config"

	"github.com/jordan-wright/email"
)

var ErrMailerSinConfigurar = errors.New("mailer: SMTP_HOST no configurado")

// Mailer sends plain-text notices to supervisors over SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configurado is false in development setups without SMTP.
func (m *Mailer) Configurado() bool { return m != nil && m.host != "" }

// SendAviso sends a plain-text message to a single recipient.
func (m *Mailer) SendAviso(to, subject, body string) error {
	if !m.Configurado() {
		return ErrMailerSinConfigurar
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	return nil
}
