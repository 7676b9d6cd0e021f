package service

import (
	"fmt"
	"net/url"
	"strings"

	"Ziyarawebserver/internal/email"
)

// EmailService builds and sends the transactional mail for the login and
// email-change flows. Links point at the frontend, which forwards the token
// back to the API.
type EmailService struct {
	Client    *email.Client
	FromName  string
	FromEmail string

	// FrontendBase has no trailing slash, e.g. "https://ziyara.example".
	FrontendBase string
}

// SendMagicLink mails the sign-in link. The address rides along as a query
// parameter because verification consumes the token scoped to it.
func (s *EmailService) SendMagicLink(toEmail, rawToken string) error {
	link := s.FrontendBase + "/auth/magic?email=" + url.QueryEscape(toEmail) + "&token=" + url.QueryEscape(rawToken)
	body := strings.Join([]string{
		"Use this link to sign in to Ziyara:",
		"",
		link,
		"",
		"The link works once and expires shortly.",
		"If you did not request it, you can ignore this email.",
	}, "\n")
	return s.send(toEmail, "Sign in to Ziyara", body)
}

func (s *EmailService) SendEmailChange(toEmail, rawToken string) error {
	link := s.FrontendBase + "/profile/email/confirm?token=" + url.QueryEscape(rawToken)
	body := strings.Join([]string{
		"Confirm this address for your Ziyara account:",
		"",
		link,
		"",
		"The link works once and expires shortly.",
		"If you did not request this change, you can ignore this email.",
	}, "\n")
	return s.send(toEmail, "Confirm your new email", body)
}

func (s *EmailService) send(toEmail, subject, body string) error {
	if s.Client == nil {
		return fmt.Errorf("smtp not configured")
	}
	return s.Client.Send(email.Message{
		FromName:  s.FromName,
		FromEmail: s.FromEmail,
		ToEmail:   toEmail,
		Subject:   subject,
		TextBody:  body,
	})
}
