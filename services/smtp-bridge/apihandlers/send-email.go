package apihandlers

import (
	"log/slog"
	"net/http"

	mw "github.com/taskflow-app/taskflow-backend/pkg/apihelpers/middlewares"
	"github.com/gin-gonic/gin"

	sc "github.com/taskflow-app/taskflow-backend/pkg/smtp-client"
)

func (h *HttpEndpoints) AddRoutes(rg *gin.RouterGroup) {
	rg.POST("/send-email",
		mw.HasValidAPIKey(h.apiKeys),
		mw.RequirePayload(),
		h.sendEmail)
}

type SendEmailReq struct {
	To              []string            `json:"to"`
	Subject         string              `json:"subject"`
	Content         string              `json:"content"`
	HighPrio        bool                `json:"highPrio"`
	HeaderOverrides *sc.HeaderOverrides `json:"headerOverrides"`
}

func (h *HttpEndpoints) sendEmail(c *gin.Context) {
	var req SendEmailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("sendEmail: failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request"})
		return
	}

	if len(req.To) < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no recipients defined"})
		return
	}

	clients := h.smtpClients
	if req.HighPrio {
		clients = h.highPrioSmtpClients
	}

	err := clients.SendMail(
		req.To,
		req.Subject,
		req.Content,
		req.HeaderOverrides,
	)
	if err != nil {
		slog.Error("sendEmail: failed to send email", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email sent"})
}
