package handlers

import (
	"github.com/driveon/backend/internal/middleware"
	"github.com/driveon/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type FolderHandler struct {
	hierarchy *services.HierarchyService
}

func NewFolderHandler(hierarchy *services.HierarchyService) *FolderHandler {
	return &FolderHandler{hierarchy: hierarchy}
}

// listScope reads the folder scope convention shared by listing endpoints:
// absent = everywhere, "" or "root" = root only, otherwise a folder id.
func listScope(c *fiber.Ctx, key string) services.ListScope {
	raw := c.Query(key, "\x00")
	if raw == "\x00" {
		return services.ListScope{}
	}
	if raw == "" || raw == "root" {
		return services.ListScope{Root: true}
	}
	if id := c.QueryInt(key, 0); id > 0 {
		fid := uint(id)
		return services.ListScope{FolderID: &fid}
	}
	return services.ListScope{Root: true}
}

// Create makes a new folder under an optional parent
func (h *FolderHandler) Create(c *fiber.Ctx) error {
	type CreateRequest struct {
		Name     string `json:"name"`
		ParentID *uint  `json:"parent_id"`
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Folder name is required",
		})
	}

	folder, err := h.hierarchy.CreateFolder(middleware.GetCurrentUserID(c), req.Name, req.ParentID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// List returns live folders in scope
func (h *FolderHandler) List(c *fiber.Ctx) error {
	page, limit := clampPage(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	search := c.Query("search", "")

	folders, total, err := h.hierarchy.ListFolders(
		middleware.GetCurrentUserID(c), listScope(c, "parent_id"), page, limit, search)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folders,
		"meta":    pageMeta(page, limit, total),
	})
}

// Get returns one folder
func (h *FolderHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid folder id",
		})
	}

	folder, err := h.hierarchy.GetFolder(middleware.GetCurrentUserID(c), uint(id))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// Rename updates a folder's name
func (h *FolderHandler) Rename(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid folder id",
		})
	}

	type RenameRequest struct {
		Name string `json:"name"`
	}
	var req RenameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	folder, err := h.hierarchy.RenameFolder(middleware.GetCurrentUserID(c), uint(id), req.Name)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// Move reparents a folder
func (h *FolderHandler) Move(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid folder id",
		})
	}

	type MoveRequest struct {
		ParentID *uint `json:"parent_id"`
	}
	var req MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	folder, err := h.hierarchy.MoveFolder(middleware.GetCurrentUserID(c), uint(id), req.ParentID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// Delete hard-deletes an empty folder
func (h *FolderHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid folder id",
		})
	}

	if err := h.hierarchy.DeleteFolder(middleware.GetCurrentUserID(c), uint(id)); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Folder deleted",
	})
}
