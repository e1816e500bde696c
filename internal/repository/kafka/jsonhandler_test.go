package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/NordCoder/Alive/internal/domain/kafka"
)

func TestJSONHandler(t *testing.T) {
	var got *domain.CheckInRequested
	h := JSONHandler(func(_ context.Context, key []byte, m *domain.CheckInRequested) error {
		require.Equal(t, "7", string(key))
		got = m
		return nil
	})

	require.NoError(t, h(context.Background(), KeyFromInt64(7), []byte(`{"user_id":7}`)))
	require.Equal(t, int64(7), got.UserID)

	require.Error(t, h(context.Background(), nil, []byte(`not json`)))
}

func TestHeaderCarriers(t *testing.T) {
	out := mapCarrierHeaders{}
	out.Set("traceparent", "00-abc-def-01")
	out.Set(headerEventType, "user_purged")

	in := mapCarrierFromKafka(out.ToKafka())
	require.Equal(t, "00-abc-def-01", in.Get("traceparent"))
	require.Equal(t, "user_purged", in.Get(headerEventType))
	require.Empty(t, in.Get("missing"))
	require.ElementsMatch(t, []string{"traceparent", headerEventType}, in.Keys())
}
