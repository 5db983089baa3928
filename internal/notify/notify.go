// Package notify sends the applicant confirmation notice after a submission is stored.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"time"

	mail "github.com/go-mail/mail/v2"

	"habilitaciones/internal/config"
	"habilitaciones/internal/model"
)

// ConfirmationMessage is shown to the applicant and repeated in the e-mail.
const ConfirmationMessage = "Se informa que su trámite de pre-inscripción comercial fue recepcionado correctamente. " +
	"Nuestro equipo revisará su solicitud y se contactará a la brevedad para indicarle los pasos a seguir. " +
	"Atentamente, Ventanilla Única"

const subject = "Pre-inscripción comercial recibida"

var ErrNoRecipient = errors.New("submission has no email")

// Notifier delivers the confirmation notice for a stored submission.
type Notifier interface {
	SubmissionReceived(ctx context.Context, sub model.Submission) error
}

// Noop drops every notice. Used when SMTP is not configured.
type Noop struct{}

func (Noop) SubmissionReceived(context.Context, model.Submission) error { return nil }

// Mailer sends notices over SMTP with mandatory STARTTLS.
type Mailer struct {
	from string
	loc  *time.Location
	send func(*mail.Message) error
}

// New returns a Mailer for cfg, or Noop when cfg has no host or sender.
func New(cfg config.SMTPConfig, loc *time.Location) Notifier {
	if cfg.Host == "" || cfg.From == "" {
		return Noop{}
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	return &Mailer{from: cfg.From, loc: loc, send: func(msg *mail.Message) error { return d.DialAndSend(msg) }}
}

func (m *Mailer) SubmissionReceived(ctx context.Context, sub model.Submission) error {
	if sub.Email == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.message(sub)); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func (m *Mailer) message(sub model.Submission) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", sub.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", renderBody(sub, m.loc))
	return msg
}

func renderBody(sub model.Submission, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf(
		"<p>Estimado/a %s:</p><p>%s</p><p>Número de trámite: <b>%s</b><br>Fecha de envío: %s</p>",
		html.EscapeString(sub.Surname),
		html.EscapeString(ConfirmationMessage),
		html.EscapeString(sub.ID),
		sub.Timestamp.In(loc).Format("02/01/2006 15:04"),
	)
}
