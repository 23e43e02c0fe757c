package mail

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KinuGra/tosho-2509-back/internal/config"
)

func TestNew_SelectsBackend(t *testing.T) {
	m, err := New(config.MailConfig{Backend: config.MailBackendLog}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = New(config.MailConfig{Backend: config.MailBackendSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	_, err = New(config.MailConfig{Backend: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}

func TestLogMailer_Deliver(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.Deliver(context.Background(), "a@example.com", "012345"))

	entries := logs.FilterMessage("verification code").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a@example.com", fields["to"])
	assert.Equal(t, "012345", fields["code"])
}

func TestLogMailer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewLogMailer(zap.NewNop()).Deliver(ctx, "a@example.com", "012345")
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeRelay struct {
	ln        net.Listener
	port      int
	rcptReply string
	dataStall time.Duration

	mu       sync.Mutex
	messages []string
	wg       sync.WaitGroup
}

func startRelay(t *testing.T, opts ...func(*fakeRelay)) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &fakeRelay{ln: ln, port: ln.Addr().(*net.TCPAddr).Port, rcptReply: "250 ok"}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		r.wg.Wait()
	})
	return r
}

func (r *fakeRelay) config() config.MailConfig {
	return config.MailConfig{
		Backend:  config.MailBackendSMTP,
		Sender:   "noreply@example.com",
		SMTPHost: "127.0.0.1",
		SMTPPort: r.port,
	}
}

func (r *fakeRelay) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *fakeRelay) serve() {
	defer r.wg.Done()
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			return
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.handle(conn)
		}()
	}
}

func (r *fakeRelay) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	tp := textproto.NewConn(conn)
	if err := tp.PrintfLine("220 localhost ESMTP"); err != nil {
		return
	}
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb, _, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EHLO", "HELO":
			err = tp.PrintfLine("250 localhost")
		case "RCPT":
			err = tp.PrintfLine("%s", r.rcptReply)
		case "DATA":
			time.Sleep(r.dataStall)
			if err = tp.PrintfLine("354 go ahead"); err != nil {
				return
			}
			body, readErr := tp.ReadDotBytes()
			if readErr != nil {
				return
			}
			r.mu.Lock()
			r.messages = append(r.messages, string(body))
			r.mu.Unlock()
			err = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			err = tp.PrintfLine("250 ok")
		}
		if err != nil {
			return
		}
	}
}

func TestSMTPMailer_Deliver(t *testing.T) {
	relay := startRelay(t)

	require.NoError(t, NewSMTPMailer(relay.config()).Deliver(context.Background(), "a@example.com", "987654"))

	msgs := relay.received()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "a@example.com")
	assert.Contains(t, msgs[0], "noreply@example.com")
	assert.Contains(t, msgs[0], "987654")
}

func TestSMTPMailer_Errors(t *testing.T) {
	t.Run("relay rejects recipient", func(t *testing.T) {
		relay := startRelay(t, func(r *fakeRelay) { r.rcptReply = "554 5.7.1 relay denied" })
		err := NewSMTPMailer(relay.config()).Deliver(context.Background(), "a@example.com", "000000")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "554")
		assert.Empty(t, relay.received())
	})

	t.Run("header injection", func(t *testing.T) {
		relay := startRelay(t)
		err := NewSMTPMailer(relay.config()).Deliver(context.Background(), "a@example.com\r\nBcc: x@example.com", "000000")
		assert.Error(t, err)
		assert.Empty(t, relay.received())
	})

	t.Run("tls required but not offered", func(t *testing.T) {
		relay := startRelay(t)
		cfg := relay.config()
		cfg.SMTPRequireTLS = true
		err := NewSMTPMailer(cfg).Deliver(context.Background(), "a@example.com", "000000")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STARTTLS")
		assert.Empty(t, relay.received())
	})

	t.Run("canceled before dialing", func(t *testing.T) {
		relay := startRelay(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, NewSMTPMailer(relay.config()).Deliver(ctx, "a@example.com", "000000"), context.Canceled)
	})
}

func TestSMTPMailer_DeadlineAbortsSession(t *testing.T) {
	relay := startRelay(t, func(r *fakeRelay) { r.dataStall = 200 * time.Millisecond })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewSMTPMailer(relay.config()).Deliver(ctx, "a@example.com", "000000")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Never(t, func() bool { return len(relay.received()) > 0 }, 400*time.Millisecond, 20*time.Millisecond,
		"the relay must not accept a message after the caller gave up")
}
