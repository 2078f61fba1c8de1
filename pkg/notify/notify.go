// Package notify delivers out-of-band notifications such as project
// invitations to people who do not have an account yet.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

// DefaultSMTPTimeout bounds one delivery when the caller sets no deadline
const DefaultSMTPTimeout = 30 * time.Second

// Sender delivers a single message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender sends plain-text mail through an SMTP relay
type SMTPSender struct {
	config SMTPConfig
	send   func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPSender creates a new SMTPSender
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	if config.Timeout <= 0 {
		config.Timeout = DefaultSMTPTimeout
	}
	s := &SMTPSender{config: config}
	s.send = s.dialAndSend
	return s
}

// From returns the fixed sender address
func (s *SMTPSender) From() string {
	return s.config.From
}

// Send delivers one message. The whole exchange with the relay ends at the
// earlier of ctx's deadline and the configured timeout, or when ctx is canceled.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	msg := mail.NewMsg()
	if err := msg.From(s.config.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	deadline := time.Now().Add(s.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return context.DeadlineExceeded
	}

	// Cancellation interrupts reads and writes already blocked on the connection
	var (
		mu   sync.Mutex
		conn net.Conn
	)
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if conn != nil {
			conn.SetDeadline(time.Now())
		}
	})
	defer stop()

	dial := func(dctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		c, err := d.DialContext(dctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := c.SetDeadline(deadline); err != nil {
			c.Close()
			return nil, err
		}
		mu.Lock()
		conn = c
		mu.Unlock()
		if ctx.Err() != nil {
			c.SetDeadline(time.Now())
		}
		return c, nil
	}

	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(remaining),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dial),
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}

	client, err := mail.NewClient(s.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ctxErr, err)
		}
		return err
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
// Used in development when no relay is configured.
type LogSender struct {
	log  logrus.FieldLogger
	from string
}

// NewLogSender creates a new LogSender
func NewLogSender(log logrus.FieldLogger, from string) *LogSender {
	if log == nil {
		log = logrus.New()
	}
	return &LogSender{log: log, from: from}
}

// Send logs the message
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.log.WithFields(logrus.Fields{
		"from":    s.from,
		"to":      to,
		"subject": subject,
	}).Info(body)
	return nil
}
