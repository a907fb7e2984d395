package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/taskflow-app/taskflow-backend/pkg/apihelpers/middlewares"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders"
	remindersTypes "github.com/taskflow-app/taskflow-backend/pkg/reminders/types"
	"github.com/gin-gonic/gin"
)

func (h *HttpEndpoints) AddReminderManagementAPI(rg *gin.RouterGroup) {
	remindersGroup := rg.Group("/reminders")
	remindersGroup.Use(mw.HasValidAPIKey(h.apiKeys))

	remindersGroup.POST("/:instanceID/users/:userID", mw.RequirePayload(), h.createReminder)
	remindersGroup.GET("/:instanceID/users/:userID", h.getRemindersForUser)
	remindersGroup.GET("/:instanceID/users/:userID/:reminderID", h.getReminder)
	remindersGroup.POST("/:instanceID/users/:userID/:reminderID/snooze", h.snoozeReminder)
	remindersGroup.DELETE("/:instanceID/users/:userID/:reminderID", h.dismissReminder)
}

func (h *HttpEndpoints) createReminder(c *gin.Context) {
	instanceID := c.Param("instanceID")
	userID := c.Param("userID")
	if !h.isInstanceAllowed(instanceID) {
		slog.Warn("createReminder: instance not allowed", slog.String("instanceID", instanceID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance not allowed"})
		return
	}

	var req remindersTypes.Reminder
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("createReminder: failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request"})
		return
	}

	created, err := reminders.CreateReminder(instanceID, userID, req)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("createReminder: failed to create reminder", slog.String("instanceID", instanceID), slog.String("userID", userID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reminder"})
		return
	}

	slog.Info("reminder created", slog.String("instanceID", instanceID), slog.String("userID", userID), slog.String("reminderID", created.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{"reminder": created})
}

func (h *HttpEndpoints) getRemindersForUser(c *gin.Context) {
	instanceID := c.Param("instanceID")
	userID := c.Param("userID")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance not allowed"})
		return
	}

	onlyActive := c.DefaultQuery("onlyActive", "true") == "true"

	items, err := reminders.GetRemindersForUser(instanceID, userID, onlyActive)
	if err != nil {
		slog.Error("getRemindersForUser: failed to fetch reminders", slog.String("instanceID", instanceID), slog.String("userID", userID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch reminders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders": items})
}

func (h *HttpEndpoints) getReminder(c *gin.Context) {
	instanceID := c.Param("instanceID")
	userID := c.Param("userID")
	reminderID := c.Param("reminderID")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance not allowed"})
		return
	}

	reminder, err := reminders.GetReminder(instanceID, userID, reminderID)
	if err != nil {
		if errors.Is(err, reminders.ErrReminderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
			return
		}
		slog.Error("getReminder: failed to fetch reminder", slog.String("instanceID", instanceID), slog.String("reminderID", reminderID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch reminder"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

type SnoozeReminderReq struct {
	Minutes int `json:"minutes"`
}

func (h *HttpEndpoints) snoozeReminder(c *gin.Context) {
	instanceID := c.Param("instanceID")
	userID := c.Param("userID")
	reminderID := c.Param("reminderID")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance not allowed"})
		return
	}

	var req SnoozeReminderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		// minutes is optional, fall back to the service default
		req.Minutes = 0
	}

	snoozed, err := reminders.SnoozeReminder(instanceID, userID, reminderID, req.Minutes)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrReminderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
		case errors.Is(err, reminders.ErrSnoozeLimitReached):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, reminders.ErrInvalidStatusTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			slog.Error("snoozeReminder: failed to snooze reminder", slog.String("instanceID", instanceID), slog.String("reminderID", reminderID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to snooze reminder"})
		}
		return
	}

	slog.Info("reminder snoozed", slog.String("instanceID", instanceID), slog.String("reminderID", reminderID), slog.Int("snoozeCount", snoozed.SnoozeInfo.SnoozeCount))
	c.JSON(http.StatusOK, gin.H{"reminder": snoozed})
}

func (h *HttpEndpoints) dismissReminder(c *gin.Context) {
	instanceID := c.Param("instanceID")
	userID := c.Param("userID")
	reminderID := c.Param("reminderID")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance not allowed"})
		return
	}

	err := reminders.DismissReminder(instanceID, userID, reminderID)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrReminderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
		case errors.Is(err, reminders.ErrInvalidStatusTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			slog.Error("dismissReminder: failed to dismiss reminder", slog.String("instanceID", instanceID), slog.String("reminderID", reminderID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to dismiss reminder"})
		}
		return
	}

	slog.Info("reminder dismissed", slog.String("instanceID", instanceID), slog.String("reminderID", reminderID))
	c.JSON(http.StatusOK, gin.H{"message": "reminder dismissed"})
}

func isValidationError(err error) bool {
	return errors.Is(err, reminders.ErrTitleRequired) ||
		errors.Is(err, reminders.ErrScheduledTimeNotInFuture) ||
		errors.Is(err, reminders.ErrNoChannels) ||
		errors.Is(err, reminders.ErrInvalidChannel) ||
		errors.Is(err, reminders.ErrInvalidPriority) ||
		errors.Is(err, reminders.ErrInvalidRepeatRule)
}
