package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const senderName = "Blog"

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender は SendGrid API でメールを送信します。
type SendGridSender struct {
	from   string
	client sendClient
	logger logrus.FieldLogger
}

// NewSendGridSender は SendGridSender を作成します。
func NewSendGridSender(key, from string, logger logrus.FieldLogger) (*SendGridSender, error) {
	if key == "" || from == "" {
		return nil, errors.New("notify: invalid SendGrid configuration")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SendGridSender{
		from:   from,
		client: sendgrid.NewSendClient(key),
		logger: logger,
	}, nil
}

// Send はメールを送信します。202 以外の応答はエラーです。
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	from := mail.NewEmail(senderName, s.from)
	to := mail.NewEmail(msg.ToName, msg.To)
	htmlContent := strings.ReplaceAll(html.EscapeString(msg.Text), "\n", "<br>")
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, htmlContent)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid request: %w", err)
	}
	if response.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notify: sendgrid responded with status %d", response.StatusCode)
	}

	entry := s.logger.WithField("to", msg.To)
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		entry = entry.WithField("messageId", ids[0])
	}
	entry.Info("mail sent")
	return nil
}
