package notify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends through an authenticated SMTP relay, upgrading to TLS
// when the server offers it.
type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "smtp client")
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{client: c, from: from, fromName: "ClubePharma"}, nil
}

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return errors.Wrap(err, "from address")
	}
	if err := msg.AddToFormat(m.ToName, m.To); err != nil {
		return errors.Wrap(err, "to address")
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	return errors.Wrap(s.client.DialAndSendWithContext(ctx, msg), "smtp send")
}
