// Package mailer sends notification email. All sends are fire-and-forget:
// a failed send is logged and never fails the operation that triggered it.
package mailer

import (
	"log"
	"os"

	"github.com/dmarquez/tasknestbackend/utils"
	gomail "gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(m Message) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSenderFromEnv() *SMTPSender {
	return &SMTPSender{
		host:     os.Getenv("SMTP_HOST"),
		port:     utils.ParseIntDefault(os.Getenv("SMTP_PORT"), 587),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

func (s *SMTPSender) Send(m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	return d.DialAndSend(msg)
}

// Dispatch sends in the background and swallows failures.
func Dispatch(s Sender, m Message) {
	if m.To == "" {
		return
	}
	go func() {
		if err := s.Send(m); err != nil {
			log.Printf("mailer: send to %s failed: %v", m.To, err)
		}
	}()
}
