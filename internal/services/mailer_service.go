package services

import (
	"fmt"
	"log"
	"time"

	"gopkg.in/gomail.v2"
)

// MailerService sends the templated membership emails. Delivery failures are
// surfaced to callers; retry policy is theirs.
type MailerService interface {
	SendOwnerInvitation(toEmail, ownerName, businessName, tempPassword string) error
	SendExpiryWarning(toEmail, businessName string, expiresAt time.Time) error
}

type mailerService struct {
	dialer       *gomail.Dialer
	senderEmail  string
	dashboardURL string
}

func NewMailerService(host string, port int, username, password, senderEmail, dashboardURL string) MailerService {
	return &mailerService{
		dialer:       gomail.NewDialer(host, port, username, password),
		senderEmail:  senderEmail,
		dashboardURL: dashboardURL,
	}
}

func (s *mailerService) SendOwnerInvitation(toEmail, ownerName, businessName, tempPassword string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("Your %s listing has been approved", businessName))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome aboard, %s!</h2>
			<p>Your registration for <strong>%s</strong> has been approved and your
			30-day premium trial has started.</p>
			<p>Sign in with this temporary password and change it right away:</p>
			<h3 style="letter-spacing: 2px;">%s</h3>
			<p><a href="%s">Open your dashboard</a></p>
		</div>
	`, ownerName, businessName, tempPassword, s.dashboardURL)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Printf("Failed to send invitation to %s: %v", toEmail, err)
		return err
	}
	return nil
}

func (s *mailerService) SendExpiryWarning(toEmail, businessName string, expiresAt time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("%s: your premium membership expires soon", businessName))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your membership is expiring</h2>
			<p>The premium membership for <strong>%s</strong> expires on %s.</p>
			<p>Renew from your dashboard to keep your photos, videos and featured
			placement.</p>
			<p><a href="%s">Renew now</a></p>
		</div>
	`, businessName, expiresAt.Format("January 2, 2006"), s.dashboardURL)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Printf("Failed to send expiry warning to %s: %v", toEmail, err)
		return err
	}
	return nil
}
