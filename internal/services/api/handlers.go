package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/services/checkin"
)

const msgNotLoggedIn = "not logged in"

type handlers struct {
	svc Service
	log *zap.Logger
}

type loginRequest struct {
	Nickname string `json:"nickname"`
	DeviceID string `json:"device_id"`
}

type userRequest struct {
	UserID int64 `json:"user_id"`
}

type configRequest struct {
	UserID   int64   `json:"user_id"`
	Webhooks *string `json:"wechat_webhook"`
	Emails   *string `json:"emails"`
}

type testRequest struct {
	UserID int64  `json:"user_id"`
	Type   string `json:"type"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	u, created, err := h.svc.Login(c.Request.Context(), req.Nickname, req.DeviceID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"user_id": u.ID, "is_new": created, "nickname": u.Nickname})
}

func queryUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "user_id is required")
		return 0, false
	}
	return id, true
}

func (h *handlers) getConfig(c *gin.Context) {
	id, valid := queryUserID(c)
	if !valid {
		return
	}
	st, err := h.svc.Status(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"nickname": st.Nickname, "check_in_days": st.StreakDays, "is_checked_in": st.CheckedInToday})
}

func (h *handlers) postConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.UserID <= 0 {
		fail(c, http.StatusBadRequest, "user_id is required")
		return
	}
	in := checkin.TargetsInput{Webhooks: req.Webhooks, Emails: req.Emails}
	if err := h.svc.Configure(c.Request.Context(), req.UserID, in); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, nil)
}

func (h *handlers) checkIn(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		fail(c, http.StatusBadRequest, msgNotLoggedIn)
		return
	}
	res, err := h.svc.CheckIn(c.Request.Context(), req.UserID, h.svc.Today())
	if err != nil {
		h.failErr(c, err)
		return
	}
	body := gin.H{"days": res.StreakDays}
	if res.AlreadyCheckedIn {
		body["message"] = "already checked in today"
	}
	ok(c, body)
}

func (h *handlers) deleteUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		fail(c, http.StatusBadRequest, msgNotLoggedIn)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), req.UserID); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"message": "user deleted"})
}

func (h *handlers) testNotification(c *gin.Context) {
	var req testRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		fail(c, http.StatusBadRequest, msgNotLoggedIn)
		return
	}
	ch, err := notification.ParseChannel(req.Type)
	if err != nil {
		fail(c, http.StatusBadRequest, "unknown notification type")
		return
	}
	if err := h.svc.TestNotification(c.Request.Context(), req.UserID, ch); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"message": "test notification sent"})
}

func (h *handlers) history(c *gin.Context) {
	id, valid := queryUserID(c)
	if !valid {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	notes, err := h.svc.History(c.Request.Context(), id, limit)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"notifications": notes})
}
