package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/taskflow-app/taskflow-backend/pkg/apihelpers"
	"github.com/taskflow-app/taskflow-backend/services/reminder-api/apihandlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var conf ReminderApiConfig

func main() {
	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", "Api-Key"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1Root := router.Group("/v1")
	v1APIHandlers := apihandlers.NewHTTPHandler(
		conf.ApiKeys,
		conf.AllowedInstanceIDs,
		newSweepForInstance,
	)
	v1APIHandlers.AddReminderManagementAPI(v1Root)
	v1APIHandlers.AddDeliveryTrackingAPI(v1Root)
	v1APIHandlers.AddSweepAPI(v1Root)

	if conf.GinConfig.DebugMode {
		apihelpers.WriteRoutesToFile(router, "reminder-api-routes.txt")
	}

	// Start the server
	slog.Info("Starting Reminder API on port " + conf.GinConfig.Port)
	if !conf.GinConfig.MTLS.Use {
		err := router.Run(":" + conf.GinConfig.Port)
		if err != nil {
			slog.Error("Exited Reminder API", slog.String("error", err.Error()))
			return
		}
	} else {
		// Create tls config for mutual TLS
		tlsConfig, err := apihelpers.LoadTLSConfig(conf.GinConfig.MTLS.CertificatePaths)
		if err != nil {
			slog.Error("Error loading TLS config.", slog.String("error", err.Error()))
			return
		}

		server := &http.Server{
			Addr:      ":" + conf.GinConfig.Port,
			Handler:   router,
			TLSConfig: tlsConfig,
		}

		err = server.ListenAndServeTLS(conf.GinConfig.MTLS.CertificatePaths.ServerCertPath, conf.GinConfig.MTLS.CertificatePaths.ServerKeyPath)
		if err != nil {
			slog.Error("Exited Reminder API", slog.String("error", err.Error()))
			return
		}
	}
}
