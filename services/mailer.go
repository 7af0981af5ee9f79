package services

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/gomail.v2"

	"github.com/vyjcapital/vyj_backend/models"
)

// Mailer sends account statements to clients by email
type Mailer struct {
	host string
	port int
	user string
	pass string
}

// NewMailer creates a mailer from SMTP environment variables
func NewMailer() *Mailer {
	port := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}

	m := &Mailer{
		host: os.Getenv("SMTP_HOST"),
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
	}
	if m.host == "" || m.user == "" {
		log.Printf("WARNING: SMTP not fully configured; statement emails disabled")
	}
	return m
}

// Enabled reports whether SMTP credentials are configured
func (m *Mailer) Enabled() bool {
	return m.host != "" && m.user != ""
}

// SendStatement emails a plain-text account statement summary
func (m *Mailer) SendStatement(to string, st *models.Statement) error {
	if !m.Enabled() {
		return fmt.Errorf("SMTP is not configured")
	}

	body := fmt.Sprintf(
		"VYJ Capital - Account Statement\n\n"+
			"Client: %s\nLoan: %s\nMethod: %s\n\n"+
			"Outstanding principal: $%.2f\n"+
			"Pending interest: $%.2f\n"+
			"Accrued arrears: $%.2f\n\n"+
			"Total due today: $%.2f\n",
		st.ClientName, st.LoanID, st.Method,
		st.Principal, st.InterestPending, st.Arrears, st.TotalDueToday,
	)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.user)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your VYJ Capital account statement")
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send statement email: %w", err)
	}
	return nil
}
