package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, SplitList(" b, ,a,b ,"))
	assert.Empty(t, SplitList(""))
}

func TestParseEmails_DedupAfterNormalizing(t *testing.T) {
	got, err := ParseEmails("A <a@x.com>, b@x.com, a@x.com, B <b@x.com>")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got)
}

func TestParseEmails_Invalid(t *testing.T) {
	_, err := ParseEmails("a@x.com, not-an-address")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseWebhooks(t *testing.T) {
	got, err := ParseWebhooks("https://h/1, http://h/2, https://h/1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://h/1", "http://h/2"}, got)

	_, err = ParseWebhooks("ftp://h/1")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
