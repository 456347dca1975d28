package sms

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de mensajes de texto.
type Sender interface {
	Send(ctx context.Context, to string, body string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("sms sender disabled")
	}
	return errors.New(s.reason)
}
