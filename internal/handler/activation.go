package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/A414347330/vip-cinema/internal/account"
	"github.com/A414347330/vip-cinema/internal/queue"
	queue_publisher "github.com/A414347330/vip-cinema/internal/service"
)

// ActivationHandler exposes code redemption.
type ActivationHandler struct {
	Svc *account.Service
}

func NewActivationHandler(svc *account.Service) *ActivationHandler {
	return &ActivationHandler{Svc: svc}
}

type activateReq struct {
	Code string `json:"code" validate:"required"`
	// Username may name another account, but only admins can redeem on
	// someone else's behalf; everyone else activates for themselves.
	Username string `json:"username"`
}

// Activate redeems a single-use code for the authenticated user and
// returns the receipt. A committed redemption also publishes a
// vip.activated event; broker failures are ignored, the activation stands.
func (h *ActivationHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := opCtx(c)
	defer cancel()

	caller := currentUsername(c)
	target := req.Username
	if target == "" {
		target = caller
	}
	if target != caller && !h.Svc.IsAdmin(ctx, caller) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	receipt, err := h.Svc.Redeem(ctx, target, req.Code)
	if err != nil {
		return respondErr(c, err)
	}

	_ = queue_publisher.PublishVIPActivated(ctx, queue.VIPActivatedEvent{
		UserID:      receipt.UserID,
		Username:    receipt.Username,
		Code:        receipt.Code,
		DaysAdded:   receipt.DaysAdded,
		NewExpiry:   receipt.NewExpiry.UTC().Format(time.RFC3339),
		ActivatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"days_added": receipt.DaysAdded,
		"new_expiry": receipt.NewExpiry,
	})
}
