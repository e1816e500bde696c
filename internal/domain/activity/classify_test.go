package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	today := date(2024, 3, 10)
	th := DefaultThresholds

	tests := []struct {
		name string
		last *time.Time
		want Action
	}{
		{"never checked in", nil, ActionNone},
		{"today", ptr(today), ActionNone},
		{"yesterday", ptr(date(2024, 3, 9)), ActionNone},
		{"two days", ptr(date(2024, 3, 8)), ActionNotify},
		{"three days", ptr(date(2024, 3, 7)), ActionNotify},
		{"four days purges", ptr(date(2024, 3, 6)), ActionPurge},
		{"five days purges", ptr(date(2024, 3, 5)), ActionPurge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(today, tt.last, th))
		})
	}
}

func TestClassifyDelta_PurgeDominatesNotify(t *testing.T) {
	th := Thresholds{NotifyAfter: 2, PurgeAfter: 4}
	assert.Equal(t, ActionPurge, ClassifyDelta(4, th))
	assert.Equal(t, ActionNotify, ClassifyDelta(3, th))
	assert.Equal(t, ActionNone, ClassifyDelta(-1, th))
}

func TestClassify_DependsOnDeltaOnly(t *testing.T) {
	for delta := 0; delta < 10; delta++ {
		a := date(2024, 1, 20)
		b := date(2023, 7, 4)
		assert.Equal(t,
			Classify(a, ptr(a.AddDate(0, 0, -delta)), DefaultThresholds),
			Classify(b, ptr(b.AddDate(0, 0, -delta)), DefaultThresholds),
			"delta=%d", delta)
	}
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds.Validate())
	assert.Error(t, Thresholds{NotifyAfter: 3, PurgeAfter: 3}.Validate())
	assert.Error(t, Thresholds{NotifyAfter: 0, PurgeAfter: 3}.Validate())
}

func TestToday_UsesLocation(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2024, 3, 10), Today(now, shanghai))
	assert.Equal(t, date(2024, 3, 9), Today(now, time.UTC))
}
