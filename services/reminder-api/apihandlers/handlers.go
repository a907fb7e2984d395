package apihandlers

import (
	"net/http"

	"github.com/taskflow-app/taskflow-backend/pkg/reminders/sweep"
	"github.com/taskflow-app/taskflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	apiKeys            []string
	allowedInstanceIDs []string
	sweepForInstance   func(instanceID string) *sweep.Sweep
}

func NewHTTPHandler(
	apiKeys []string,
	allowedInstanceIDs []string,
	sweepForInstance func(instanceID string) *sweep.Sweep,
) *HttpEndpoints {
	return &HttpEndpoints{
		apiKeys:            apiKeys,
		allowedInstanceIDs: allowedInstanceIDs,
		sweepForInstance:   sweepForInstance,
	}
}

func (h *HttpEndpoints) isInstanceAllowed(instanceID string) bool {
	return utils.ContainsString(h.allowedInstanceIDs, instanceID)
}
