package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/A414347330/vip-cinema/internal/account"
)

// AdminHandler exposes the admin panel operations. Every call passes the
// acting username (from the JWT) to the account service, which performs
// the authoritative admin check against configuration and storage.
type AdminHandler struct {
	Svc *account.Service
}

func NewAdminHandler(svc *account.Service) *AdminHandler {
	return &AdminHandler{Svc: svc}
}

// ListUsers: GET /v1/admin/users?search=&page=&page_size=
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := opCtx(c)
	defer cancel()

	page, err := h.Svc.ListUsers(ctx, currentUsername(c), c.QueryParam("search"),
		queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": page})
}

type updateUserReq struct {
	Role      *string `json:"role"`
	AddDays   *int    `json:"add_days"`
	VIPActive *bool   `json:"vip_active"`
}

// UpdateUser: PATCH /v1/admin/users/:id
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opCtx(c)
	defer cancel()

	upd := account.UserUpdate{Role: req.Role, AddDays: req.AddDays, VIPActive: req.VIPActive}
	if err := h.Svc.UpdateUser(ctx, currentUsername(c), id, upd); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteUser: DELETE /v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	if err := h.Svc.DeleteUser(ctx, currentUsername(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type generateCodesReq struct {
	Count        int `json:"count" validate:"required,min=1,max=500"`
	DurationDays int `json:"duration_days" validate:"min=0"`
}

// GenerateCodes: POST /v1/admin/codes
func (h *AdminHandler) GenerateCodes(c echo.Context) error {
	var req generateCodesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := opCtx(c)
	defer cancel()

	codes, err := h.Svc.GenerateCodes(ctx, currentUsername(c), req.Count, req.DurationDays)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "codes": codes})
}

// ListCodes: GET /v1/admin/codes?filter=&search=&page=&page_size=
func (h *AdminHandler) ListCodes(c echo.Context) error {
	ctx, cancel := opCtx(c)
	defer cancel()

	page, err := h.Svc.ListCodes(ctx, currentUsername(c), c.QueryParam("filter"),
		c.QueryParam("search"), queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "codes": page})
}

// DeleteCode: DELETE /v1/admin/codes/:id
func (h *AdminHandler) DeleteCode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()

	if err := h.Svc.DeleteCode(ctx, currentUsername(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListEmailCodes: GET /v1/admin/email-codes?search=&page=&page_size=
func (h *AdminHandler) ListEmailCodes(c echo.Context) error {
	ctx, cancel := opCtx(c)
	defer cancel()

	page, err := h.Svc.ListEmailCodes(ctx, currentUsername(c), c.QueryParam("search"),
		queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "email_codes": page})
}
