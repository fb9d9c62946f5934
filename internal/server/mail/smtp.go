package mail

import (
	"context"
	"fmt"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/logging"
	gomail "github.com/wneessen/go-mail"
)

// SMTPSettings configure the outgoing relay.
type SMTPSettings struct {
	Host     string
	Port     int
	User     string
	Password string
}

type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

var newSMTPClient = func(s SMTPSettings) (smtpClient, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.User),
			gomail.WithPassword(s.Password),
		)
	}
	return gomail.NewClient(s.Host, opts...)
}

// SMTPSender sends HTML mails through an SMTP relay.
type SMTPSender struct {
	client smtpClient
	logger logging.Logger
}

func NewSMTPSender(s SMTPSettings, l logging.Logger) (*SMTPSender, error) {
	c, err := newSMTPClient(s)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: c, logger: l.With("module", "mail")}, nil
}

func (s *SMTPSender) Send(ctx context.Context, recipient string, t Template, values ...any) error {
	msg, err := compose(recipient, Render(t, values...))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrMailUnavailable, err)
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error(ctx, "sending mail failed", "subject", t.Subject, "error", err)
		return fmt.Errorf("%w: %v", common.ErrMailUnavailable, err)
	}

	s.logger.Info(ctx, "mail sent", "subject", t.Subject)
	return nil
}

func compose(recipient string, t Template) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(t.Sender); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject(t.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, t.Body)
	return msg, nil
}
