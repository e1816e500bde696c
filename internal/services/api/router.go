package api

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
	"github.com/NordCoder/Alive/internal/services/checkin"
)

// Service is the part of the check-in usecase the HTTP layer drives.
type Service interface {
	Login(ctx context.Context, nickname, deviceID string) (*user.User, bool, error)
	Status(ctx context.Context, id int64) (checkin.Status, error)
	Configure(ctx context.Context, id int64, in checkin.TargetsInput) error
	CheckIn(ctx context.Context, id int64, today time.Time) (checkin.Result, error)
	Today() time.Time
	Delete(ctx context.Context, id int64) error
	TestNotification(ctx context.Context, id int64, ch notification.Channel) error
	History(ctx context.Context, id int64, limit int) ([]*notification.Notification, error)
}

type Config struct {
	Mode               string // debug, test or release
	AllowedOrigins     []string
	RateLimitPerMinute int
}

func NewRouter(svc Service, cfg Config, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "http"))

	switch strings.ToLower(cfg.Mode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestLogger(log), recovery(log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	h := &handlers{svc: svc, log: log}
	limit := newRateLimiter(cfg.RateLimitPerMinute).middleware()

	g := r.Group("/api")
	g.GET("/config", h.getConfig)
	g.GET("/notifications", h.history)

	w := g.Group("", limit)
	w.POST("/login", h.login)
	w.POST("/config", h.postConfig)
	w.POST("/check_in", h.checkIn)
	w.POST("/delete_user", h.deleteUser)
	w.POST("/test_notification", h.testNotification)

	r.NoRoute(func(c *gin.Context) { fail(c, 404, "not found") })
	return r
}
