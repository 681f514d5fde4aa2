package email

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers transactional email through SendGrid.
type Sender struct {
	apiKey   string
	fromName string
	fromAddr string
}

func NewSender(apiKey, fromName, fromAddr string) *Sender {
	return &Sender{
		apiKey:   apiKey,
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (s *Sender) Send(toName, toEmail, subject, textContent, htmlContent string) error {
	if s.apiKey == "" {
		return fmt.Errorf("sendgrid api key is not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)
	client := sendgrid.NewSendClient(s.apiKey)

	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	return nil
}

// SendVerificationCode delivers the 6-digit challenge code.
func (s *Sender) SendVerificationCode(toName, toEmail, code string) error {
	subject := "Your verification code"
	text := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in 10 minutes.</p>", code)
	return s.Send(toName, toEmail, subject, text, html)
}
