package health

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// BrokerPinger reports reachability of the doctor feed broker.
type BrokerPinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db     *sqlx.DB
	broker BrokerPinger
}

func NewHandler(db *sqlx.DB, broker BrokerPinger) *Handler {
	return &Handler{
		db:     db,
		broker: broker,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ReadinessCheck verifies the two dependencies a dispatch cycle cannot
// run without: the request store and the dashboard feed broker.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "database connection failed",
		})
		return
	}
	if h.broker != nil {
		if err := h.broker.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "DOWN",
				"reason": "feed broker unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
