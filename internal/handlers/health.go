package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"realtime-service/internal/rabbitmq"
	"realtime-service/internal/ws"
)

// RegisterHealthRoutes wires liveness and readiness endpoints.
func RegisterHealthRoutes(router *gin.Engine, db *sqlx.DB, registry *ws.Registry, queue rabbitmq.QueuePublisher) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": registry.Count(),
			"queue_mode":  rabbitmq.PublisherMode(queue),
		})
	})
}
