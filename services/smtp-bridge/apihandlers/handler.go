package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sc "github.com/taskflow-app/taskflow-backend/pkg/smtp-client"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	apiKeys             []string
	highPrioSmtpClients *sc.SmtpClients
	smtpClients         *sc.SmtpClients
}

func NewHTTPHandler(
	apiKeys []string,
	highPrioSmtpClients *sc.SmtpClients,
	smtpClients *sc.SmtpClients,
) *HttpEndpoints {
	return &HttpEndpoints{
		apiKeys:             apiKeys,
		highPrioSmtpClients: highPrioSmtpClients,
		smtpClients:         smtpClients,
	}
}
