package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSMTPClient struct {
	from    string
	rcpts   []string
	body    bytes.Buffer
	quit    bool
	closed  bool
	authSet bool
}

func (f *fakeSMTPClient) Mail(from string) error { f.from = from; return nil }
func (f *fakeSMTPClient) Rcpt(to string) error   { f.rcpts = append(f.rcpts, to); return nil }
func (f *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.body}, nil
}
func (f *fakeSMTPClient) Quit() error                     { f.quit = true; return nil }
func (f *fakeSMTPClient) Close() error                    { f.closed = true; return nil }
func (f *fakeSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (f *fakeSMTPClient) Auth(smtp.Auth) error            { f.authSet = true; return nil }
func (f *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(t *testing.T, cfg SMTPSettings) (*smtpMailer, *fakeSMTPClient) {
	t.Helper()

	client := &fakeSMTPClient{}
	server, conn := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = conn.Close()
	})

	return &smtpMailer{
		cfg: cfg,
		dialFn: func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
			return conn, client, nil
		},
		authFn: func(c smtpClient, cfg SMTPSettings) error {
			return nil
		},
	}, client
}

func TestSendDisabledReturnsSentinel(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "x", Body: "y"})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestNewSMTPMailerRequiresHostWhenEnabled(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.Error(t, err)
}

func TestSendWritesMessage(t *testing.T) {
	mailer, client := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@technotrades.example",
	})

	msg := Message{
		To:      []string{"shopper@example.com", "shopper@example.com", " "},
		Subject: "Verify your TechnoTrades account",
		Body:    "Your verification code is 123456.",
	}
	require.NoError(t, mailer.Send(context.Background(), msg))

	require.Equal(t, "no-reply@technotrades.example", client.from)
	require.Equal(t, []string{"shopper@example.com"}, client.rcpts)
	require.True(t, client.quit)

	written := client.body.String()
	require.Contains(t, written, "Subject: Verify your TechnoTrades account")
	require.Contains(t, written, "\r\n\r\nYour verification code is 123456.")
}

func TestSendRejectsInvalidAddresses(t *testing.T) {
	mailer, _ := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@technotrades.example",
	})

	err := mailer.Send(context.Background(), Message{To: []string{"not an address"}})
	require.Error(t, err)

	err = mailer.Send(context.Background(), Message{To: nil})
	require.Error(t, err)
}

func TestEscapeHeaderStripsNewlines(t *testing.T) {
	require.Equal(t, "a b c", escapeHeader("a\rb\nc"))
}

func TestTemplatesCarryCodeAndExpiry(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"verification", VerificationMessage("to@example.com", "654321", 10)},
		{"login", LoginCodeMessage("to@example.com", "654321", 10)},
		{"reset", PasswordResetMessage("to@example.com", "654321", 10)},
		{"email change", EmailChangeMessage("to@example.com", "654321", 10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, []string{"to@example.com"}, tc.msg.To)
			require.NotEmpty(t, tc.msg.Subject)
			require.Contains(t, tc.msg.Body, "654321")
			require.Contains(t, tc.msg.Body, "10 minutes")
		})
	}
}
