package apihandlers

import (
	"log/slog"
	"net/http"
	"time"

	mw "github.com/taskflow-app/taskflow-backend/pkg/apihelpers/middlewares"
	"github.com/gin-gonic/gin"
)

// AddSweepAPI registers the manual sweep trigger, mainly used by operators and
// integration tests; the scheduled job is the normal driver of the sweep.
func (h *HttpEndpoints) AddSweepAPI(rg *gin.RouterGroup) {
	sweepGroup := rg.Group("/sweep")
	sweepGroup.Use(mw.HasValidAPIKey(h.apiKeys))

	sweepGroup.POST("/:instanceID/run", h.runSweep)
}

func (h *HttpEndpoints) runSweep(c *gin.Context) {
	instanceID := c.Param("instanceID")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance not allowed"})
		return
	}

	slog.Info("manual sweep triggered", slog.String("instanceID", instanceID))

	summary, err := h.sweepForInstance(instanceID).RunSweep(c.Request.Context(), instanceID, time.Now())
	if err != nil {
		slog.Error("runSweep: sweep failed", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
