package dispatch

import (
	"context"
	"fmt"

	"github.com/jwalitptl/dispatch-api/internal/email"
	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/whatsapp"
	"github.com/jwalitptl/dispatch-api/pkg/messaging"
)

// EmailChannel delivers offers as transactional emails with a deep link
// carrying the accept token.
type EmailChannel struct {
	svc       email.Service
	acceptURL string
}

func NewEmailChannel(svc email.Service, acceptURL string) *EmailChannel {
	return &EmailChannel{svc: svc, acceptURL: acceptURL}
}

func (c *EmailChannel) Name() string          { return model.ChannelEmail }
func (c *EmailChannel) AcceptChannel() string { return model.AcceptChannelEmailLink }

func (c *EmailChannel) Notify(ctx context.Context, doctor *model.Doctor, payload *model.NotificationPayload) error {
	subject := "New service request available"
	body := fmt.Sprintf(
		"<p>A new %s request is available.</p>%s<p><a href=%q>Accept this request</a></p><p>Offer expires at %s.</p>",
		payload.Category,
		distanceLine(payload),
		fmt.Sprintf("%s?token=%s", c.acceptURL, payload.AcceptToken),
		payload.ExpiresAt.Format("15:04 MST"),
	)
	return c.svc.SendRequestOffer(ctx, doctor.Email, subject, body)
}

// WhatsAppChannel delivers offers as interactive messages whose accept
// button payload is the signed token.
type WhatsAppChannel struct {
	client whatsapp.Client
}

func NewWhatsAppChannel(client whatsapp.Client) *WhatsAppChannel {
	return &WhatsAppChannel{client: client}
}

func (c *WhatsAppChannel) Name() string          { return model.ChannelWhatsApp }
func (c *WhatsAppChannel) AcceptChannel() string { return model.AcceptChannelWhatsAppBtn }

func (c *WhatsAppChannel) Notify(ctx context.Context, doctor *model.Doctor, payload *model.NotificationPayload) error {
	body := fmt.Sprintf("New %s request available.", payload.Category)
	if payload.DistanceDisplay != "" {
		body = fmt.Sprintf("%s Distance: %s.", body, payload.DistanceDisplay)
	}
	return c.client.SendTemplate(ctx, doctor.Phone, whatsapp.TemplateMessage{
		Body:          body,
		ButtonLabel:   "Accept",
		ButtonPayload: payload.AcceptToken,
	})
}

// DashboardChannel publishes offers onto the doctor's dashboard feed.
type DashboardChannel struct {
	broker messaging.Broker
}

func NewDashboardChannel(broker messaging.Broker) *DashboardChannel {
	return &DashboardChannel{broker: broker}
}

func (c *DashboardChannel) Name() string          { return model.ChannelDashboard }
func (c *DashboardChannel) AcceptChannel() string { return model.AcceptChannelDashboard }

func (c *DashboardChannel) Notify(ctx context.Context, doctor *model.Doctor, payload *model.NotificationPayload) error {
	return c.broker.Publish(ctx, "doctor-feed:"+doctor.ID.String(), messaging.Message{
		Type:    "request_offer",
		Payload: payload,
	})
}

func distanceLine(payload *model.NotificationPayload) string {
	if payload.DistanceDisplay == "" {
		return ""
	}
	return fmt.Sprintf("<p>Distance from you: %s.</p>", payload.DistanceDisplay)
}
