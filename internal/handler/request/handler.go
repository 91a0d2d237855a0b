package request

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/middleware"
	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/service/acceptance"
	"github.com/jwalitptl/dispatch-api/internal/service/request"
	"github.com/jwalitptl/dispatch-api/pkg/httputil"
)

type Handler struct {
	requests *request.Service
	acceptor *acceptance.Service
}

func NewHandler(requests *request.Service, acceptor *acceptance.Service) *Handler {
	return &Handler{
		requests: requests,
		acceptor: acceptor,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/requests")
	{
		requests.POST("", h.CreateRequest)
		requests.GET("/:id", h.GetRequest)
		requests.POST("/:id/accept", h.AcceptRequest)
		requests.POST("/:id/cancel", h.CancelRequest)
	}
}

// CreateRequest is the intake surface: create, match, fan out. The
// response tells the caller whether anyone was actually notified.
func (h *Handler) CreateRequest(c *gin.Context) {
	var input model.CreateRequestRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	req, candidates, err := h.requests.CreateAndDispatch(c.Request.Context(), &input)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, gin.H{
		"request":          req,
		"notified_doctors": len(candidates),
	})
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request ID"})
		return
	}

	req, err := h.requests.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, req)
}

type acceptRequestBody struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
}

// AcceptRequest is the dashboard accept surface. All surfaces funnel
// into the same arbiter; the doctor identity comes from the session
// token when one was presented, otherwise from the body.
func (h *Handler) AcceptRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request ID"})
		return
	}

	var doctorID uuid.UUID
	if v, ok := c.Get(middleware.ContextDoctorID); ok {
		doctorID = v.(uuid.UUID)
	} else {
		var body acceptRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		doctorID = body.DoctorID
	}

	result, err := h.acceptor.AttemptAccept(c.Request.Context(), id, doctorID, model.AcceptChannelDashboard, &acceptance.CallerMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) CancelRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request ID"})
		return
	}

	if err := h.requests.Cancel(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"cancelled": true})
}
