// Package notify はメール通知の送信手段を提供します。
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/blog-forge/internal/config"
)

// Message は送信するメールです。本文はプレーンテキストです。
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
}

// Sender はメール送信の共通インターフェースです。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrInvalidMessage は宛先や件名が空のメッセージで返されます。
var ErrInvalidMessage = errors.New("notify: message requires recipient and subject")

func validateMessage(msg Message) error {
	if strings.TrimSpace(msg.To) == "" || strings.TrimSpace(msg.Subject) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// NewSender は設定の MAIL_PROVIDER に応じた Sender を返します。
func NewSender(cfg *config.Config, logger logrus.FieldLogger) (Sender, error) {
	switch cfg.MailProvider {
	case "", config.MailProviderLog:
		return NewLogSender(logger), nil
	case config.MailProviderSendGrid:
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom, logger)
	default:
		return nil, fmt.Errorf("notify: unknown mail provider %q", cfg.MailProvider)
	}
}

// LogSender は実際には送信せず、内容をログに出力します。開発用です。
type LogSender struct {
	logger logrus.FieldLogger
}

// NewLogSender は LogSender を作成します。
func NewLogSender(logger logrus.FieldLogger) *LogSender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSender{logger: logger}
}

// Send はメッセージをログに書き出します。
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail (log provider): " + msg.Text)
	return nil
}
