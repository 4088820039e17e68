package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/logging"
	"github.com/iliyamo/seat-reservation-engine/internal/payment"
	"github.com/iliyamo/seat-reservation-engine/internal/service"
)

// maxWebhookBody bounds the callback body read before verification.
const maxWebhookBody = 1 << 20

// WebhookHandler receives the payment provider's checkout callbacks.
type WebhookHandler struct {
	commit    Committer
	secret    string
	tolerance time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewWebhookHandler constructs a WebhookHandler verifying callbacks with
// secret.
func NewWebhookHandler(commit Committer, secret string, tolerance time.Duration, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{
		commit:    commit,
		secret:    secret,
		tolerance: tolerance,
		log:       logging.Component(log, "webhook"),
		now:       time.Now,
	}
}

// Payment handles POST /webhooks/payment.  A bad signature is rejected with
// 400 before anything is touched.  Once the signature checks out the
// answer is always 200, even when the commit fails, so the provider does
// not retry into the same failure.
func (h *WebhookHandler) Payment(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sig := c.Request().Header.Get(payment.SignatureHeader)
	if err := payment.Verify(sig, body, h.secret, h.tolerance, h.now()); err != nil {
		h.log.WithError(err).Warn("rejected callback")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ack := echo.Map{"received": true}
	ev, err := payment.ParseEvent(body)
	if err != nil {
		h.log.WithError(err).Warn("undecodable callback")
		return c.JSON(http.StatusOK, ack)
	}
	if !ev.Paid() {
		h.log.WithFields(logrus.Fields{"type": ev.Type, "event": ev.ID}).Debug("ignoring callback")
		return c.JSON(http.StatusOK, ack)
	}
	order, err := ev.Order()
	if err != nil {
		h.log.WithError(err).WithField("event", ev.ID).Error("paid session without usable metadata")
		return c.JSON(http.StatusOK, ack)
	}

	// Payment is already taken; the commit outlives the request.
	res, err := h.commit.Commit(context.WithoutCancel(c.Request().Context()), order.SeatIDs, order.HolderID, service.SourceWebhook)
	fields := logrus.Fields{"event": ev.ID, "seat_ids": order.SeatIDs, "holder_id": order.HolderID}
	switch {
	case err != nil:
		h.log.WithError(err).WithFields(fields).Error("booking failed after payment")
	case res.AlreadyCommitted:
		h.log.WithFields(fields).Info("duplicate payment callback")
	}
	return c.JSON(http.StatusOK, ack)
}
