// Package email sends patient notifications over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/pkg/event"
)

type Service interface {
	SendBookingConfirmation(ctx context.Context, booked event.Consultation) error
	SendCancellation(ctx context.Context, cancelled event.Consultation) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// dialer is the part of *gomail.Dialer the service uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPService struct {
	dialer dialer
	from   string
}

func NewSMTPService(cfg Config) *SMTPService {
	return &SMTPService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

var bookingTemplate = template.Must(template.New("booking").Parse(`<p>Hello {{.PatientName}},</p>
<p>Your consultation{{if .DoctorName}} with Dr. {{.DoctorName}}{{end}} is booked for {{.Date}} at {{.Time}}, room {{.Room}}.</p>
<p>You are number {{.Order}} in the {{.Shift}} queue.</p>`))

var cancellationTemplate = template.Must(template.New("cancellation").Parse(`<p>Hello {{.PatientName}},</p>
<p>Your consultation on {{.Date}} at {{.Time}} has been cancelled.</p>`))

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (s *SMTPService) SendBookingConfirmation(ctx context.Context, booked event.Consultation) error {
	body, err := render(bookingTemplate, booked)
	if err != nil {
		return err
	}
	return s.SendCustom(ctx, booked.PatientEmail, "Consultation booked", body)
}

func (s *SMTPService) SendCancellation(ctx context.Context, cancelled event.Consultation) error {
	body, err := render(cancellationTemplate, cancelled)
	if err != nil {
		return err
	}
	return s.SendCustom(ctx, cancelled.PatientEmail, "Consultation cancelled", body)
}

func (s *SMTPService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// LogService stands in for SMTP when it is disabled.
type LogService struct{}

func (LogService) SendBookingConfirmation(ctx context.Context, booked event.Consultation) error {
	log.Info().Str("to", booked.PatientEmail).Str("consultation_id", booked.ConsultationID.String()).Msg("booking email skipped, smtp disabled")
	return nil
}

func (LogService) SendCancellation(ctx context.Context, cancelled event.Consultation) error {
	log.Info().Str("to", cancelled.PatientEmail).Str("consultation_id", cancelled.ConsultationID.String()).Msg("cancellation email skipped, smtp disabled")
	return nil
}

func (LogService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("email skipped, smtp disabled")
	return nil
}
