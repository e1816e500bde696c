package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alive_monitor_sweeps_total", Help: "Monitor passes by result.",
	}, []string{"result"})
	mSweepDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "alive_monitor_sweep_duration_seconds", Help: "Duration of a monitor pass.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})
	mUsers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alive_monitor_users_total", Help: "Users processed by the monitor, by outcome.",
	}, []string{"outcome"})
	mDispatch = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alive_notifications_total", Help: "Per-target notification outcomes.",
	}, []string{"channel", "result"})
	mSkippedTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alive_scheduler_skipped_ticks_total", Help: "Ticks skipped because a pass was still running or another replica held the lock.",
	})
	mLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alive_monitor_last_success_timestamp_seconds", Help: "Unix time of the last completed pass.",
	})
)
