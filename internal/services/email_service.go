package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailService delivers verification and reset codes. Delivery is
// fire-and-forget from the caller's perspective: callers log failures and
// carry on, since the code is persisted either way.
type EmailService interface {
	SendVerificationEmail(to, code string) error
	SendPasswordResetEmail(to, code string) error
}

type smtpEmailService struct {
	dialer  *gomail.Dialer
	from    string
	appName string
}

// NewEmailService creates an SMTP-backed EmailService.
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail, appName string) EmailService {
	return &smtpEmailService{
		dialer:  gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:    fromEmail,
		appName: appName,
	}
}

func (s *smtpEmailService) SendVerificationEmail(to, code string) error {
	subject := fmt.Sprintf("%s - Verify Your Email", s.appName)
	body := fmt.Sprintf(
		"Welcome to %s!\n\n"+
			"Your email verification code is: %s\n\n"+
			"This code will expire in 15 minutes.\n\n"+
			"If you didn't create an account, please ignore this email.",
		s.appName, code)

	return s.send(to, subject, body)
}

func (s *smtpEmailService) SendPasswordResetEmail(to, code string) error {
	subject := fmt.Sprintf("%s - Password Reset", s.appName)
	body := fmt.Sprintf(
		"You requested a password reset for your %s account.\n\n"+
			"Your password reset code is: %s\n\n"+
			"This code will expire in 15 minutes.\n\n"+
			"If you didn't request this, please ignore this email.",
		s.appName, code)

	return s.send(to, subject, body)
}

func (s *smtpEmailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
