package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/Alive/internal/domain/notification"
)

var _ notification.Sender = (*WebhookSender)(nil)

type textPayload struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

// WebhookSender posts a text message to each instant-messaging webhook independently.
type WebhookSender struct {
	c           *http.Client
	userAgent   string
	concurrency int
	log         *zap.Logger
}

func NewWebhookSender(c *http.Client, userAgent string) *WebhookSender {
	return &WebhookSender{
		c:           c,
		userAgent:   userAgent,
		concurrency: 8,
		log:         zap.L().With(zap.String("component", "notifier.webhook")),
	}
}

func (s *WebhookSender) WithLogger(l *zap.Logger) *WebhookSender {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = l.With(zap.String("component", "notifier.webhook"))
	return &cp
}

func (s *WebhookSender) Channel() notification.Channel { return notification.ChannelWebhook }

func (s *WebhookSender) Send(ctx context.Context, targets []string, msg notification.Message) notification.DispatchResult {
	res := notification.DispatchResult{
		Channel:  notification.ChannelWebhook,
		Outcomes: make([]notification.Outcome, len(targets)),
	}
	if len(targets) == 0 {
		return res
	}

	var p textPayload
	p.MsgType = "text"
	p.Text.Content = msg.Body
	body, err := json.Marshal(p)
	if err != nil {
		for i, t := range targets {
			res.Outcomes[i] = notification.Outcome{Target: t, Err: err}
		}
		return res
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			res.Outcomes[i] = notification.Outcome{Target: target, Err: s.post(ctx, target, body)}
			return nil
		})
	}
	_ = g.Wait()

	return res
}

func (s *WebhookSender) post(ctx context.Context, target string, body []byte) error {
	start := time.Now()
	log := s.log.With(zap.String("target", redact(target)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.c.Do(req)
	if err != nil {
		log.Warn("webhook post failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("webhook rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", snippet))
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	log.Info("webhook delivered", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// redact keeps the scheme and host of a webhook URL; the path and query usually carry the secret key.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Scheme + "://" + u.Host + "/..."
}
