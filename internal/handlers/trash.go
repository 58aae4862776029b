package handlers

import (
	"github.com/driveon/backend/internal/middleware"
	"github.com/driveon/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type TrashHandler struct {
	trash *services.TrashService
}

func NewTrashHandler(trash *services.TrashService) *TrashHandler {
	return &TrashHandler{trash: trash}
}

type trashItemRequest struct {
	Type services.ItemType `json:"type"`
	ID   uint              `json:"id"`
}

func parseTrashItem(c *fiber.Ctx) (*trashItemRequest, error) {
	var req trashItemRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, err
	}
	if !services.ValidItemType(req.Type) || req.ID == 0 {
		return nil, fiber.ErrBadRequest
	}
	return &req, nil
}

// Trash moves a file or folder (with its subtree) into the trash
func (h *TrashHandler) Trash(c *fiber.Ctx) error {
	req, err := parseTrashItem(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": `Invalid request: type must be "file" or "folder" and id is required`,
		})
	}

	if err := h.trash.Trash(middleware.GetCurrentUserID(c), req.Type, req.ID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Moved to trash",
	})
}

// Restore brings a trashed item (and, for folders, its subtree) back
func (h *TrashHandler) Restore(c *fiber.Ctx) error {
	req, err := parseTrashItem(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": `Invalid request: type must be "file" or "folder" and id is required`,
		})
	}

	if err := h.trash.Restore(middleware.GetCurrentUserID(c), req.Type, req.ID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Restored from trash",
	})
}

// PermanentDelete purges a trashed item for good
func (h *TrashHandler) PermanentDelete(c *fiber.Ctx) error {
	req, err := parseTrashItem(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": `Invalid request: type must be "file" or "folder" and id is required`,
		})
	}

	if err := h.trash.PermanentDelete(middleware.GetCurrentUserID(c), req.Type, req.ID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Permanently deleted",
	})
}

// Empty purges everything in the caller's trash
func (h *TrashHandler) Empty(c *fiber.Ctx) error {
	result, err := h.trash.EmptyTrash(middleware.GetCurrentUserID(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Trash emptied",
		"data":    result,
	})
}

// List pages through trashed files and folders
func (h *TrashHandler) List(c *fiber.Ctx) error {
	page, limit := clampPage(c.QueryInt("page", 1), c.QueryInt("limit", 20))

	listing, err := h.trash.ListTrash(middleware.GetCurrentUserID(c), page, limit)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"files":   listing.Files,
			"folders": listing.Folders,
		},
		"meta": pageMeta(page, limit, listing.Total),
	})
}
