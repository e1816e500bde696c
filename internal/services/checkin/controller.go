package checkin

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/kafka"
	"github.com/NordCoder/Alive/internal/domain/user"
	kafkax "github.com/NordCoder/Alive/internal/repository/kafka"
)

// Controller performs check-ins requested over Kafka.
type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Usecase
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, kafkax.JSONHandler(c.handle))
}

// handle drops requests that can never succeed so they get committed; store errors are returned.
func (c *Controller) handle(ctx context.Context, _ []byte, msg *kafka.CheckInRequested) error {
	log := c.Log.With(zap.Int64("user_id", msg.UserID))
	if msg.UserID <= 0 {
		log.Warn("check-in request without user id dropped")
		return nil
	}
	res, err := c.UC.CheckIn(ctx, msg.UserID, c.UC.Today())
	switch {
	case errors.Is(err, user.ErrNotFound), user.IsValidation(err):
		log.Warn("check-in request rejected", zap.Error(err))
		return nil
	case err != nil:
		return err
	}
	log.Debug("check-in request handled", zap.Int("streak_days", res.StreakDays), zap.Bool("already", res.AlreadyCheckedIn))
	return nil
}
