package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	mw "github.com/taskflow-app/taskflow-backend/pkg/apihelpers/middlewares"
	"github.com/taskflow-app/taskflow-backend/pkg/reminders"
	"github.com/gin-gonic/gin"
)

// AddDeliveryTrackingAPI registers the callback endpoints delivery providers
// and clients report back on: provider delivery confirmations and user read or
// click interactions, all keyed by the per-attempt messageId.
func (h *HttpEndpoints) AddDeliveryTrackingAPI(rg *gin.RouterGroup) {
	trackingGroup := rg.Group("/delivery-tracking")
	trackingGroup.Use(mw.HasValidAPIKey(h.apiKeys))

	trackingGroup.POST("/:instanceID/confirm", mw.RequirePayload(), h.confirmDelivery)
	trackingGroup.POST("/:instanceID/read", mw.RequirePayload(), h.markDeliveryRead)
	trackingGroup.POST("/:instanceID/clicked", mw.RequirePayload(), h.markDeliveryClicked)
}

type DeliveryEventReq struct {
	MessageID string     `json:"messageId"`
	Timestamp *time.Time `json:"timestamp"`
}

func (req DeliveryEventReq) eventTime() time.Time {
	if req.Timestamp != nil {
		return *req.Timestamp
	}
	return time.Now()
}

func (h *HttpEndpoints) confirmDelivery(c *gin.Context) {
	h.handleDeliveryEvent(c, "confirm", reminders.ConfirmDelivery)
}

func (h *HttpEndpoints) markDeliveryRead(c *gin.Context) {
	h.handleDeliveryEvent(c, "read", reminders.MarkDeliveryRead)
}

func (h *HttpEndpoints) markDeliveryClicked(c *gin.Context) {
	h.handleDeliveryEvent(c, "clicked", reminders.MarkDeliveryClicked)
}

func (h *HttpEndpoints) handleDeliveryEvent(c *gin.Context, eventType string, apply func(instanceID string, messageID string, at time.Time) error) {
	instanceID := c.Param("instanceID")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance not allowed"})
		return
	}

	var req DeliveryEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("handleDeliveryEvent: failed to bind request", slog.String("eventType", eventType), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request"})
		return
	}
	if req.MessageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messageId is required"})
		return
	}

	if err := apply(instanceID, req.MessageID, req.eventTime()); err != nil {
		if errors.Is(err, reminders.ErrReminderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "delivery attempt not found"})
			return
		}
		slog.Error("handleDeliveryEvent: failed to record delivery event",
			slog.String("instanceID", instanceID),
			slog.String("eventType", eventType),
			slog.String("messageID", req.MessageID),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record delivery event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "delivery event recorded"})
}
