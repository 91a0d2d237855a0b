package accept

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/service/acceptance"
	"github.com/jwalitptl/dispatch-api/pkg/httputil"
	"github.com/jwalitptl/dispatch-api/pkg/token"
)

// Handler serves the token-carrying accept surfaces: email deep links
// and WhatsApp webhook replies. Both resolve the signed token to a
// (request, doctor) pair and funnel into the arbiter; the surface they
// arrived on is what gets audited, not the channel the token was
// issued for.
type Handler struct {
	acceptor *acceptance.Service
	tokens   *token.Service
}

func NewHandler(acceptor *acceptance.Service, tokens *token.Service) *Handler {
	return &Handler{
		acceptor: acceptor,
		tokens:   tokens,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/accept", h.AcceptViaLink)
	r.POST("/webhooks/whatsapp", h.WhatsAppWebhook)
}

// AcceptViaLink handles the email deep link. The token is the only
// credential; no session is required.
func (h *Handler) AcceptViaLink(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing accept token"})
		return
	}

	claims, err := h.tokens.ValidateAcceptToken(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid or expired accept token"})
		return
	}

	result, err := h.acceptor.AttemptAccept(c.Request.Context(), claims.RequestID, claims.DoctorID, model.AcceptChannelEmailLink, &acceptance.CallerMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

type whatsAppWebhookBody struct {
	From          string `json:"from" binding:"required"`
	Type          string `json:"type" binding:"required,oneof=button text"`
	ButtonPayload string `json:"button_payload"`
	Text          string `json:"text"`
}

// WhatsAppWebhook resolves inbound replies. Button taps carry the
// accept token as the button payload; free-text replies are expected
// to be "ACCEPT <token>" as instructed in the outbound message.
func (h *Handler) WhatsAppWebhook(c *gin.Context) {
	var body whatsAppWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	var raw, channel string
	switch body.Type {
	case "button":
		raw = body.ButtonPayload
		channel = model.AcceptChannelWhatsAppBtn
	case "text":
		raw = parseTextReply(body.Text)
		channel = model.AcceptChannelWhatsAppText
	}
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "reply does not contain an accept token"})
		return
	}

	claims, err := h.tokens.ValidateAcceptToken(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid or expired accept token"})
		return
	}

	result, err := h.acceptor.AttemptAccept(c.Request.Context(), claims.RequestID, claims.DoctorID, channel, &acceptance.CallerMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func parseTextReply(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "accept") {
		return ""
	}
	return fields[1]
}
