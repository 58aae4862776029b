package handlers

import (
	"fmt"

	"github.com/driveon/backend/internal/middleware"
	"github.com/driveon/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ShareHandler struct {
	shares *services.ShareService
}

func NewShareHandler(shares *services.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

// Create issues a share link for one of the caller's files
func (h *ShareHandler) Create(c *fiber.Ctx) error {
	type CreateRequest struct {
		FileID        uint   `json:"file_id"`
		ExpiresInDays *int   `json:"expires_in_days"`
		Password      string `json:"password"`
		MaxDownloads  *int64 `json:"max_downloads"`
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil || req.FileID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "File id is required",
		})
	}

	link, err := h.shares.CreateLink(middleware.GetCurrentUserID(c), req.FileID, services.CreateLinkParams{
		ExpiresInDays: req.ExpiresInDays,
		Password:      req.Password,
		MaxDownloads:  req.MaxDownloads,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token": link.Token,
		},
	})
}

// Info returns visitor-facing metadata for a share token (public route)
func (h *ShareHandler) Info(c *fiber.Ctx) error {
	info, err := h.shares.GetPublicInfo(c.Params("token"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    info,
	})
}

// Download streams a shared file after the password gate (public route)
func (h *ShareHandler) Download(c *fiber.Ctx) error {
	type DownloadRequest struct {
		Password string `json:"password"`
	}
	var req DownloadRequest
	c.BodyParser(&req) // body is optional when no password is set

	dl, err := h.shares.Download(c.Params("token"), req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	c.Set("Content-Type", dl.Mimetype)
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.Name))
	c.Set("Content-Length", fmt.Sprintf("%d", dl.Size))
	return c.SendStream(dl.Content, int(dl.Size))
}

// List pages through the caller's share links
func (h *ShareHandler) List(c *fiber.Ctx) error {
	page, limit := clampPage(c.QueryInt("page", 1), c.QueryInt("limit", 20))

	links, total, err := h.shares.ListForOwner(middleware.GetCurrentUserID(c), page, limit)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    links,
		"meta":    pageMeta(page, limit, total),
	})
}

// Revoke deletes one of the caller's share links
func (h *ShareHandler) Revoke(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid share id",
		})
	}

	if err := h.shares.Revoke(middleware.GetCurrentUserID(c), uint(id)); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Share link revoked",
	})
}

// TogglePublic flips the legacy single-token sharing flag on a file
func (h *ShareHandler) TogglePublic(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	type ToggleRequest struct {
		IsPublic bool `json:"is_public"`
	}
	var req ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	file, err := h.shares.SetFilePublic(middleware.GetCurrentUserID(c), uint(id), req.IsPublic)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// PublicFile returns metadata for a legacy public file token (public route)
func (h *ShareHandler) PublicFile(c *fiber.Ctx) error {
	file, err := h.shares.GetSharedFile(c.Params("token"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// PublicDownload streams a legacy public file (public route)
func (h *ShareHandler) PublicDownload(c *fiber.Ctx) error {
	dl, err := h.shares.DownloadShared(c.Params("token"))
	if err != nil {
		return serviceError(c, err)
	}

	c.Set("Content-Type", dl.Mimetype)
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.Name))
	c.Set("Content-Length", fmt.Sprintf("%d", dl.Size))
	return c.SendStream(dl.Content, int(dl.Size))
}
