package checkin

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/activity"
	"github.com/NordCoder/Alive/internal/domain/clock"
	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
	"github.com/NordCoder/Alive/internal/obs"
)

const maxNicknameLen = 64

var mCheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "alive_checkins_total",
	Help: "Check-in attempts by result",
}, []string{"result"})

type Prober interface {
	Probe(ctx context.Context, ch notification.Channel, u *user.User) (notification.DispatchResult, error)
}

// Deps groups the collaborators of the usecase. Notes is optional.
type Deps struct {
	Users    user.Repo
	Tx       user.Transactor
	Prober   Prober
	Notes    notification.Repo
	Clock    clock.Clock
	Location *time.Location
	Log      *zap.Logger
}

type Usecase struct {
	Deps
	policy *bluemonday.Policy
}

func New(d Deps) *Usecase {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	d.Log = d.Log.With(zap.String("component", "checkin"))
	return &Usecase{Deps: d, policy: bluemonday.StrictPolicy()}
}

// Today is the current calendar date in the configured location.
func (uc *Usecase) Today() time.Time {
	return activity.Today(uc.Clock.Now(), uc.Location)
}

func (uc *Usecase) cleanNickname(raw string) (string, error) {
	nick := strings.TrimSpace(html.UnescapeString(uc.policy.Sanitize(raw)))
	if nick == "" {
		return "", fmt.Errorf("%w: nickname is required", user.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(nick) > maxNicknameLen {
		return "", fmt.Errorf("%w: nickname longer than %d characters", user.ErrInvalidArgument, maxNicknameLen)
	}
	return nick, nil
}

// Login returns the user identified by (nickname, deviceID), creating it on first sight.
func (uc *Usecase) Login(ctx context.Context, nickname, deviceID string) (u *user.User, created bool, err error) {
	nick, err := uc.cleanNickname(nickname)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, false, fmt.Errorf("%w: device id is required", user.ErrInvalidArgument)
	}
	dev, err := uuid.Parse(strings.TrimSpace(deviceID))
	if err != nil {
		return nil, false, fmt.Errorf("%w: device id must be a uuid", user.ErrInvalidArgument)
	}

	u, err = uc.Users.GetByIdentity(ctx, nick, dev.String())
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, false, err
	}

	u = &user.User{Nickname: nick, DeviceID: dev.String()}
	switch err := uc.Users.Create(ctx, u); {
	case errors.Is(err, user.ErrConflict):
		// lost a race with a concurrent login of the same identity
		u, err = uc.Users.GetByIdentity(ctx, nick, dev.String())
		return u, false, err
	case err != nil:
		return nil, false, err
	}
	uc.Log.Info("user registered", zap.Int64("user_id", u.ID))
	return u, true, nil
}

type Status struct {
	Nickname       string
	StreakDays     int
	CheckedInToday bool
}

// Status never exposes notification targets.
func (uc *Usecase) Status(ctx context.Context, id int64) (Status, error) {
	u, err := uc.Users.GetByID(ctx, id)
	if err != nil {
		return Status{}, err
	}
	today := uc.Today()
	return Status{
		Nickname:       u.Nickname,
		StreakDays:     u.StreakDays,
		CheckedInToday: u.LastCheckIn != nil && u.LastCheckIn.Equal(today),
	}, nil
}

// TargetsInput carries raw comma separated lists; nil fields are left unchanged.
type TargetsInput struct {
	Webhooks *string
	Emails   *string
}

func (uc *Usecase) Configure(ctx context.Context, id int64, in TargetsInput) error {
	var t user.Targets
	if in.Webhooks != nil {
		list, err := user.ParseWebhooks(*in.Webhooks)
		if err != nil {
			return err
		}
		t.Webhooks = &list
	}
	if in.Emails != nil {
		list, err := user.ParseEmails(*in.Emails)
		if err != nil {
			return err
		}
		t.Emails = &list
	}
	if t.Empty() {
		_, err := uc.Users.GetByID(ctx, id)
		return err
	}
	return uc.Users.UpdateTargets(ctx, id, t)
}

type Result struct {
	AlreadyCheckedIn bool
	StreakDays       int
}

// CheckIn records a check-in for today. The read and the write happen in one transaction with
// the row locked, so concurrent check-ins of the same user serialize.
func (uc *Usecase) CheckIn(ctx context.Context, id int64, today time.Time) (Result, error) {
	tr := otel.Tracer("checkin.uc")
	ctx, span := tr.Start(ctx, "checkin.perform",
		trace.WithAttributes(attribute.Int64("user.id", id)),
	)
	defer span.End()

	var res Result
	err := uc.Tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := uc.Users.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if u.Nickname == "" {
			return user.ErrNotConfigured
		}
		if !u.HasChannel() {
			return user.ErrNoNotificationChannel
		}

		last, streak, already := activity.Evaluate(today, u.LastCheckIn, u.StreakDays)
		res = Result{AlreadyCheckedIn: already, StreakDays: streak}
		if already {
			return nil
		}
		return uc.Users.UpdateCheckIn(ctx, id, last, streak)
	})
	switch {
	case err != nil && user.IsValidation(err):
		mCheckIns.WithLabelValues("rejected").Inc()
		return Result{}, err
	case errors.Is(err, user.ErrNotFound):
		mCheckIns.WithLabelValues("not_found").Inc()
		return Result{}, err
	case err != nil:
		span.RecordError(err)
		mCheckIns.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("check in: %w", err)
	case res.AlreadyCheckedIn:
		mCheckIns.WithLabelValues("already").Inc()
	default:
		mCheckIns.WithLabelValues("ok").Inc()
	}
	span.SetAttributes(attribute.Int("streak.days", res.StreakDays))
	obs.WithTrace(ctx, uc.Log).Debug("checked in",
		zap.Int64("user_id", id), zap.Int("streak_days", res.StreakDays), zap.Bool("already", res.AlreadyCheckedIn))
	return res, nil
}

// Delete removes the user and its dispatch log. Deleting a missing user is not an error.
func (uc *Usecase) Delete(ctx context.Context, id int64) error {
	if err := uc.Users.Delete(ctx, id); err != nil && !errors.Is(err, user.ErrNotFound) {
		return err
	}
	uc.Log.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

// TestNotification sends a probe through one channel and returns the delivery failure, if any.
func (uc *Usecase) TestNotification(ctx context.Context, id int64, ch notification.Channel) error {
	u, err := uc.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	res, err := uc.Prober.Probe(ctx, ch, u)
	if uc.Notes != nil {
		for _, n := range notification.FromResult(id, notification.KindProbe, res, uc.Clock.Now().UTC()) {
			if werr := uc.Notes.Create(ctx, n); werr != nil {
				uc.Log.Warn("dispatch log write failed", zap.Error(werr))
			}
		}
	}
	if err != nil && !user.IsValidation(err) {
		uc.Log.Warn("test notification failed", zap.Int64("user_id", id), zap.String("channel", string(ch)), zap.Error(err))
	}
	return err
}

// History lists the latest dispatch outcomes of a user, newest first.
func (uc *Usecase) History(ctx context.Context, id int64, limit int) ([]*notification.Notification, error) {
	if uc.Notes == nil {
		return []*notification.Notification{}, nil
	}
	if _, err := uc.Users.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.Notes.ListByUser(ctx, id, limit)
}
