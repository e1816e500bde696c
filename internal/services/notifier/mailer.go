package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/notification"
)

var _ notification.Sender = (*Mailer)(nil)

var ErrMailerNotConfigured = errors.New("smtp account is not configured")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From     string
	FromName string
	// SSL selects implicit TLS. When false the session is upgraded with STARTTLS if StartTLS is set.
	SSL      bool
	StartTLS bool
	Timeout  time.Duration
}

// session is the part of *mail.Client the mailer needs.
type session interface {
	Send(msgs ...*mail.Msg) error
	Close() error
}

type dialFunc func(ctx context.Context) (session, error)

// Mailer sends one message per call, addressed to all targets, over a single authenticated session.
type Mailer struct {
	cfg  SMTPConfig
	dial dialFunc
	log  *zap.Logger
}

func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	m := &Mailer{
		cfg: cfg,
		log: zap.L().With(zap.String("component", "notifier.mailer")),
	}
	m.dial = m.dialSMTP
	return m
}

func (m *Mailer) WithLogger(l *zap.Logger) *Mailer {
	if l == nil {
		return m
	}
	cp := *m
	cp.log = l.With(zap.String("component", "notifier.mailer"))
	return &cp
}

func (m *Mailer) Channel() notification.Channel { return notification.ChannelEmail }

func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != ""
}

func (m *Mailer) options() []mail.Option {
	opts := []mail.Option{
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	}
	switch {
	case m.cfg.SSL:
		opts = append(opts, mail.WithSSL())
	case m.cfg.StartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(m.cfg.Port))
	}
	return opts
}

func (m *Mailer) dialSMTP(ctx context.Context) (session, error) {
	c, err := mail.NewClient(m.cfg.Host, m.options()...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialWithContext(ctx); err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	return c, nil
}

func (m *Mailer) buildMessage(targets []string, msg notification.Message) (*mail.Msg, error) {
	mm := mail.NewMsg()
	if err := mm.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := mm.To(targets...); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)
	return mm, nil
}

// Send delivers msg in one envelope. Any session failure is reported for every target.
func (m *Mailer) Send(ctx context.Context, targets []string, msg notification.Message) notification.DispatchResult {
	res := notification.DispatchResult{Channel: notification.ChannelEmail}
	if len(targets) == 0 {
		return res
	}

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_host", m.cfg.Host),
		zap.Int("smtp_port", m.cfg.Port),
		zap.Bool("ssl", m.cfg.SSL),
		zap.Strings("to", targets),
	)

	err := m.send(ctx, targets, msg)
	for _, t := range targets {
		res.Outcomes = append(res.Outcomes, notification.Outcome{Target: t, Err: err})
	}
	if err != nil {
		log.Error("email not sent", zap.Error(err))
		return res
	}
	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))
	return res
}

func (m *Mailer) send(ctx context.Context, targets []string, msg notification.Message) error {
	if !m.Configured() {
		return ErrMailerNotConfigured
	}
	mm, err := m.buildMessage(targets, msg)
	if err != nil {
		return err
	}
	s, err := m.dial(ctx)
	if err != nil {
		return err
	}
	if err := s.Send(mm); err != nil {
		_ = s.Close()
		return fmt.Errorf("smtp send: %w", err)
	}
	if err := s.Close(); err != nil {
		m.log.Debug("smtp quit", zap.Error(err))
	}
	return nil
}
