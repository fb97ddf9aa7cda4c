// Package mailer sends the dealership's outbound email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"gopkg.in/gomail.v2"
)

// Attachment is a file to attach to a message.  Open is called while the
// message is being written.
type Attachment struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Message is one outbound email.
type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTP sends through an authenticated SMTP relay using STARTTLS.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(host string, port int, user, pass string) *SMTP {
	return &SMTP{dialer: gomail.NewDialer(host, port, user, pass), from: user}
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := build(s.from, m)
	if err := s.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

func build(from string, m Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", m.To)
	gm.SetHeader("Subject", m.Subject)
	gm.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		gm.AddAlternative("text/html", m.HTML)
	}
	for _, a := range m.Attachments {
		open := a.Open
		gm.Attach(path.Base(a.Name), gomail.SetCopyFunc(func(w io.Writer) error {
			rc, err := open()
			if err != nil {
				return err
			}
			defer rc.Close()
			_, err = io.Copy(w, rc)
			return err
		}))
	}
	return gm
}

// Log only records messages.  It is used when no SMTP account is
// configured.
type Log struct{ Logger *slog.Logger }

func (l Log) Send(_ context.Context, m Message) error {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.Info("mail not sent (smtp disabled)", "to", m.To, "subject", m.Subject, "attachments", len(m.Attachments))
	return nil
}
