package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/Alive/internal/domain/activity"
	"github.com/NordCoder/Alive/internal/domain/clock"
	"github.com/NordCoder/Alive/internal/domain/kafka"
	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/outbox"
	"github.com/NordCoder/Alive/internal/domain/user"
	"github.com/NordCoder/Alive/internal/obs"
)

type Reminder interface {
	Remind(ctx context.Context, u *user.User) []notification.DispatchResult
}

type Config struct {
	Thresholds activity.Thresholds
	Workers    int
}

// Deps groups the collaborators of the usecase. Notes and Outbox are optional.
type Deps struct {
	Users    user.Repo
	Tx       user.Transactor
	Reminder Reminder
	Notes    notification.Repo
	Outbox   outbox.Repository
	Clock    clock.Clock
	Log      *zap.Logger
}

type Usecase struct {
	Deps
	cfg Config
}

func NewUsecase(d Deps, cfg Config) (*Usecase, error) {
	if d.Users == nil || d.Tx == nil || d.Reminder == nil {
		return nil, errors.New("monitor: users, tx and reminder are required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	d.Log = d.Log.With(zap.String("component", "monitor"))
	return &Usecase{Deps: d, cfg: cfg}, nil
}

type Report struct {
	Scanned     int `json:"scanned"`
	Skipped     int `json:"skipped"`
	Notified    int `json:"notified"`
	Purged      int `json:"purged"`
	Failed      int `json:"failed"`
	Delivered   int `json:"delivered"`
	Undelivered int `json:"undelivered"`
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeSkipped
	outcomeNotified
	outcomePurged
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeSkipped:
		return "skipped"
	case outcomeNotified:
		return "notified"
	case outcomePurged:
		return "purged"
	case outcomeFailed:
		return "failed"
	default:
		return "active"
	}
}

// Sweep runs one monitor pass over every user as of today. Only a failure to list users is
// returned; per-user failures are logged and counted. A canceled ctx stops the pass between users.
func (uc *Usecase) Sweep(ctx context.Context, today time.Time) (Report, error) {
	today = activity.Day(today)
	start := time.Now()

	tr := otel.Tracer("monitor.uc")
	ctx, span := tr.Start(ctx, "monitor.sweep",
		trace.WithAttributes(attribute.String("today", activity.FormatDate(today))),
	)
	defer span.End()
	log := obs.WithTrace(ctx, uc.Log).With(zap.String("today", activity.FormatDate(today)))

	users, err := uc.Users.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		mSweeps.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("list users: %w", err)
	}

	var (
		mu  sync.Mutex
		rep = Report{Scanned: len(users)}
	)
	g := new(errgroup.Group)
	g.SetLimit(uc.cfg.Workers)
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			o, delivered, undelivered := uc.processUser(ctx, log, u, today)
			mUsers.WithLabelValues(o.String()).Inc()

			mu.Lock()
			defer mu.Unlock()
			switch o {
			case outcomeSkipped:
				rep.Skipped++
			case outcomeNotified:
				rep.Notified++
			case outcomePurged:
				rep.Purged++
			case outcomeFailed:
				rep.Failed++
			}
			rep.Delivered += delivered
			rep.Undelivered += undelivered
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("users.scanned", rep.Scanned),
		attribute.Int("users.notified", rep.Notified),
		attribute.Int("users.purged", rep.Purged),
		attribute.Int("users.failed", rep.Failed),
	)
	mSweepDur.Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		mSweeps.WithLabelValues("aborted").Inc()
		log.Warn("monitor pass abandoned", zap.Error(err), zap.Any("report", rep))
		return rep, nil
	}
	mSweeps.WithLabelValues("ok").Inc()
	mLastSuccess.SetToCurrentTime()
	log.Info("monitor pass finished", zap.Any("report", rep), zap.Duration("elapsed", time.Since(start)))
	return rep, nil
}

func (uc *Usecase) processUser(ctx context.Context, log *zap.Logger, u *user.User, today time.Time) (outcome, int, int) {
	if u.LastCheckIn == nil {
		return outcomeSkipped, 0, 0
	}
	delta := activity.DaysBetween(*u.LastCheckIn, today)
	log = log.With(zap.Int64("user_id", u.ID), zap.Int("inactive_days", delta))

	switch activity.ClassifyDelta(delta, uc.cfg.Thresholds) {
	case activity.ActionPurge:
		return uc.purge(ctx, log, u.ID, today), 0, 0
	case activity.ActionNotify:
		return uc.notify(ctx, log, u, delta)
	default:
		return outcomeNone, 0, 0
	}
}

// errRevived aborts a purge whose row no longer classifies as purgeable.
var errRevived = errors.New("user checked in since listing")

// purge re-reads the row under lock and deletes it only if it is still past the purge threshold.
func (uc *Usecase) purge(ctx context.Context, log *zap.Logger, id int64, today time.Time) outcome {
	err := uc.Tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := uc.Users.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if activity.Classify(today, u.LastCheckIn, uc.cfg.Thresholds) != activity.ActionPurge {
			return errRevived
		}
		if err := uc.Users.Delete(ctx, id); err != nil {
			return err
		}
		if uc.Outbox == nil {
			return nil
		}
		return uc.enqueue(ctx, outbox.KindUserPurged, kafka.UserPurged{
			UserID:      u.ID,
			Nickname:    u.Nickname,
			LastCheckIn: *u.LastCheckIn,
			InactiveFor: activity.DaysBetween(*u.LastCheckIn, today),
			At:          uc.Clock.Now().UTC(),
		})
	})
	switch {
	case errors.Is(err, user.ErrNotFound):
		log.Debug("user already gone")
		return outcomeSkipped
	case errors.Is(err, errRevived):
		log.Info("purge skipped, user checked in during the pass")
		return outcomeSkipped
	case err != nil:
		log.Error("purge failed", zap.Error(err))
		return outcomeFailed
	}
	log.Info("user purged after inactivity")
	return outcomePurged
}

func (uc *Usecase) notify(ctx context.Context, log *zap.Logger, u *user.User, delta int) (outcome, int, int) {
	if u.Nickname == "" || !u.HasChannel() {
		log.Debug("no nickname or channel, reminder skipped")
		return outcomeSkipped, 0, 0
	}

	now := uc.Clock.Now().UTC()
	delivered, undelivered := 0, 0
	for _, res := range uc.Reminder.Remind(ctx, u) {
		for _, o := range res.Outcomes {
			if o.Err != nil {
				undelivered++
				mDispatch.WithLabelValues(string(res.Channel), "error").Inc()
				log.Warn("reminder not delivered", zap.String("channel", string(res.Channel)), zap.Error(o.Err))
			} else {
				delivered++
				mDispatch.WithLabelValues(string(res.Channel), "ok").Inc()
			}
		}
		uc.record(ctx, log, u.ID, res, now)
	}

	if uc.Outbox != nil {
		if err := uc.enqueue(ctx, outbox.KindUserReminded, kafka.UserReminded{
			UserID:      u.ID,
			Nickname:    u.Nickname,
			InactiveFor: delta,
			Delivered:   delivered,
			Failed:      undelivered,
			At:          now,
		}); err != nil {
			log.Warn("reminded event not stored", zap.Error(err))
		}
	}

	log.Info("reminder dispatched", zap.Int("delivered", delivered), zap.Int("failed", undelivered))
	return outcomeNotified, delivered, undelivered
}

func (uc *Usecase) record(ctx context.Context, log *zap.Logger, userID int64, res notification.DispatchResult, at time.Time) {
	if uc.Notes == nil {
		return
	}
	for _, n := range notification.FromResult(userID, notification.KindReminder, res, at) {
		if err := uc.Notes.Create(ctx, n); err != nil {
			log.Warn("dispatch log write failed", zap.Error(err))
		}
	}
}

func (uc *Usecase) enqueue(ctx context.Context, kind outbox.Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return uc.Outbox.Enqueue(ctx, uuid.NewString(), kind, data)
}
