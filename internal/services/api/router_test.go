package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Alive/internal/domain/clock"
	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
	"github.com/NordCoder/Alive/internal/repository/memory"
	"github.com/NordCoder/Alive/internal/services/checkin"
	"github.com/NordCoder/Alive/internal/services/notifier"
)

const deviceID = "6f1c2a9e-3b7d-4c1e-9a55-0d2f8e7b1c44"

type stubSender struct {
	ch  notification.Channel
	err error
}

func (s stubSender) Channel() notification.Channel { return s.ch }

func (s stubSender) Send(_ context.Context, targets []string, _ notification.Message) notification.DispatchResult {
	res := notification.DispatchResult{Channel: s.ch}
	for _, t := range targets {
		res.Outcomes = append(res.Outcomes, notification.Outcome{Target: t, Err: s.err})
	}
	return res
}

type env struct {
	store *memory.Store
	h     http.Handler
}

func newEnv(t *testing.T, rateLimit int) *env {
	t.Helper()
	store := memory.New()
	uc := checkin.New(checkin.Deps{
		Users: store,
		Tx:    store,
		Prober: notifier.NewDispatcher(
			stubSender{ch: notification.ChannelWebhook},
			stubSender{ch: notification.ChannelEmail, err: errors.New("smtp: 535 authentication failed")},
		),
		Notes: store.Notifications(),
		Clock: clock.NewFake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
	})
	return &env{store: store, h: NewRouter(uc, Config{Mode: "test", RateLimitPerMinute: rateLimit}, nil)}
}

func (e *env) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestAPI_Flow(t *testing.T) {
	e := newEnv(t, 0)

	code, body := e.do(t, http.MethodPost, "/api/login", map[string]string{"nickname": "alice", "device_id": deviceID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, true, body["is_new"])
	id := int64(body["user_id"].(float64))

	code, body = e.do(t, http.MethodPost, "/api/check_in", map[string]any{"user_id": id})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body["status"])

	code, _ = e.do(t, http.MethodPost, "/api/config", map[string]any{"user_id": id, "wechat_webhook": "https://hook.example/a"})
	require.Equal(t, http.StatusOK, code)

	code, body = e.do(t, http.MethodPost, "/api/check_in", map[string]any{"user_id": id})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["days"])
	assert.Nil(t, body["message"])

	code, body = e.do(t, http.MethodPost, "/api/check_in", map[string]any{"user_id": id})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["days"])
	assert.Equal(t, "already checked in today", body["message"])

	code, body = e.do(t, http.MethodGet, "/api/config?user_id=1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["nickname"])
	assert.Equal(t, float64(1), body["check_in_days"])
	assert.Equal(t, true, body["is_checked_in"])
	assert.NotContains(t, body, "wechat_webhook")
	assert.NotContains(t, body, "emails")

	code, body = e.do(t, http.MethodPost, "/api/login", map[string]string{"nickname": "alice", "device_id": deviceID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["is_new"])

	code, _ = e.do(t, http.MethodPost, "/api/delete_user", map[string]any{"user_id": id})
	require.Equal(t, http.StatusOK, code)

	code, _ = e.do(t, http.MethodGet, "/api/config?user_id=1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_Validation(t *testing.T) {
	e := newEnv(t, 0)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"login without nickname", http.MethodPost, "/api/login", map[string]string{"device_id": deviceID}, http.StatusBadRequest},
		{"login without device", http.MethodPost, "/api/login", map[string]string{"nickname": "bob"}, http.StatusBadRequest},
		{"config without user", http.MethodGet, "/api/config", nil, http.StatusBadRequest},
		{"config unknown user", http.MethodGet, "/api/config?user_id=99", nil, http.StatusNotFound},
		{"check in without user", http.MethodPost, "/api/check_in", map[string]any{}, http.StatusBadRequest},
		{"check in unknown user", http.MethodPost, "/api/check_in", map[string]any{"user_id": 99}, http.StatusNotFound},
		{"bad webhook", http.MethodPost, "/api/config", map[string]any{"user_id": 1, "wechat_webhook": "nope"}, http.StatusBadRequest},
		{"delete without user", http.MethodPost, "/api/delete_user", map[string]any{}, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := e.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestAPI_TestNotification(t *testing.T) {
	e := newEnv(t, 0)
	e.store.Put(&user.User{ID: 1, Nickname: "alice", Webhooks: []string{"https://hook.example/a"}, Emails: []string{"a@example.com"}})
	e.store.Put(&user.User{ID: 2, Nickname: "bob"})

	code, body := e.do(t, http.MethodPost, "/api/test_notification", map[string]any{"user_id": 1, "type": "wechat"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])

	code, body = e.do(t, http.MethodPost, "/api/test_notification", map[string]any{"user_id": 1, "type": "email"})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body["message"], "535")

	code, _ = e.do(t, http.MethodPost, "/api/test_notification", map[string]any{"user_id": 2, "type": "wechat"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/api/test_notification", map[string]any{"user_id": 1, "type": "sms"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/api/test_notification", map[string]any{"user_id": 7, "type": "email"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = e.do(t, http.MethodGet, "/api/notifications?user_id=1", nil)
	require.Equal(t, http.StatusOK, code)
	notes, _ := body["notifications"].([]any)
	assert.Len(t, notes, 2)
}

func TestAPI_RateLimit(t *testing.T) {
	e := newEnv(t, 2)
	req := map[string]string{"nickname": "alice", "device_id": deviceID}

	code, _ := e.do(t, http.MethodPost, "/api/login", req)
	assert.Equal(t, http.StatusOK, code)

	code, body := e.do(t, http.MethodPost, "/api/login", req)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "error", body["status"])

	code, _ = e.do(t, http.MethodGet, "/api/config?user_id=1", nil)
	assert.Equal(t, http.StatusOK, code, "reads are not limited")
}

func TestRateLimiter_ExpiresIdleVisitors(t *testing.T) {
	rl := newRateLimiter(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	now = now.Add(10 * time.Minute)
	assert.True(t, rl.allow("a"))
	assert.Len(t, rl.visitors, 1)
}
