package mail

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/KinuGra/tosho-2509-back/internal/config"
)

const (
	codeSubject = "Your verification code"
	smtpTimeout = 15 * time.Second
)

// SMTPMailer relays codes through an SMTP server, one session per delivery.
type SMTPMailer struct {
	host     string
	port     int
	from     string
	user     string
	password string
	policy   gomail.TLSPolicy
}

// NewSMTPMailer authenticates with PLAIN when a user is configured.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	policy := gomail.TLSOpportunistic
	if cfg.SMTPRequireTLS {
		policy = gomail.TLSMandatory
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.Sender,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		policy:   policy,
	}
}

// Deliver sends a plain-text message carrying the code. Canceling ctx closes
// the connection, so a message not yet accepted by the relay is never sent.
func (m *SMTPMailer) Deliver(ctx context.Context, to, code string) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(codeSubject)
	msg.SetBodyString(gomail.TypeTextPlain,
		fmt.Sprintf("Your verification code is %s.\r\nIt expires in a few minutes.\r\n", code))

	conn := &sessionConn{}
	stop := context.AfterFunc(ctx, conn.abort)
	defer stop()

	client, err := gomail.NewClient(m.host, m.options(conn.dial)...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	session, err := client.DialToSMTPClientWithContext(ctx)
	if err != nil {
		return sessionError(ctx, "smtp dial", err)
	}
	defer func() { _ = client.CloseWithSMTPClient(session) }()

	if err := client.SendWithSMTPClient(session, msg); err != nil && !msg.IsDelivered() {
		return sessionError(ctx, "smtp send", err)
	}
	return nil
}

func (m *SMTPMailer) options(dial gomail.DialContextFunc) []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(m.port),
		gomail.WithTLSPolicy(m.policy),
		gomail.WithTimeout(smtpTimeout),
		gomail.WithDialContextFunc(dial),
	}
	if m.user != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.user),
			gomail.WithPassword(m.password),
		)
	}
	return opts
}

func sessionError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

// sessionConn owns the relay connection so cancellation can close it mid-session.
type sessionConn struct {
	mu      sync.Mutex
	conn    net.Conn
	aborted bool
}

func (s *sessionConn) dial(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		_ = c.Close()
		return nil, net.ErrClosed
	}
	s.conn = c
	return c, nil
}

func (s *sessionConn) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
