package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/user"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func ok(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["status"] = statusSuccess
	c.JSON(http.StatusOK, body)
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"status": statusError, "message": msg})
}

// failErr maps a usecase error onto the response status. Store faults are not echoed back.
func (h *handlers) failErr(c *gin.Context, err error) {
	switch {
	case user.IsValidation(err):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrNotFound):
		fail(c, http.StatusNotFound, "user not found")
	case errors.Is(err, notification.ErrDispatch):
		fail(c, http.StatusBadGateway, err.Error())
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
