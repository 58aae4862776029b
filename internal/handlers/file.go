package handlers

import (
	"fmt"
	"log"

	"github.com/driveon/backend/internal/middleware"
	"github.com/driveon/backend/internal/services"
	"github.com/driveon/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	hierarchy *services.HierarchyService
	quota     *services.QuotaService
	blobs     storage.BlobStore
}

func NewFileHandler(hierarchy *services.HierarchyService, quota *services.QuotaService, blobs storage.BlobStore) *FileHandler {
	return &FileHandler{hierarchy: hierarchy, quota: quota, blobs: blobs}
}

// Upload stores the multipart file content first, then records it through
// the hierarchy service, which owns quota enforcement and compensation.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No file uploaded",
		})
	}

	var folderID *uint
	if v := c.FormValue("folder_id"); v != "" {
		var id uint
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil || id == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid folder id",
			})
		}
		folderID = &id
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read upload",
		})
	}
	defer src.Close()

	handle, size, err := h.blobs.Save(src)
	if err != nil {
		log.Printf("Upload: blob save failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to store file",
		})
	}

	mimetype := fileHeader.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	userID := middleware.GetCurrentUserID(c)
	file, err := h.hierarchy.CreateFile(userID, services.CreateFileParams{
		Name:         c.FormValue("name"),
		OriginalName: fileHeader.Filename,
		Mimetype:     mimetype,
		Size:         size,
		FolderID:     folderID,
		Description:  c.FormValue("description"),
		Handle:       handle,
	})
	if err != nil {
		return serviceError(c, err)
	}

	snapshot, _ := h.quota.Snapshot(userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"file":    file,
			"storage": snapshot,
		},
	})
}

// Download streams a live file back to its owner as an attachment
func (h *FileHandler) Download(c *fiber.Ctx) error {
	return h.stream(c, "attachment")
}

// View streams a live file inline for browser preview
func (h *FileHandler) View(c *fiber.Ctx) error {
	return h.stream(c, "inline")
}

func (h *FileHandler) stream(c *fiber.Ctx, disposition string) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	file, err := h.hierarchy.GetFile(middleware.GetCurrentUserID(c), uint(id))
	if err != nil {
		return serviceError(c, err)
	}
	if file.IsTrashed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "File not found",
		})
	}

	content, err := h.blobs.Open(file.FilePath)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "File not found on disk",
		})
	}

	c.Set("Content-Type", file.Mimetype)
	c.Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, file.OriginalName))
	c.Set("Content-Length", fmt.Sprintf("%d", file.Size))
	return c.SendStream(content, int(file.Size))
}

// Get returns file metadata, trashed or not
func (h *FileHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	file, err := h.hierarchy.GetFile(middleware.GetCurrentUserID(c), uint(id))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// List returns live files in scope
func (h *FileHandler) List(c *fiber.Ctx) error {
	page, limit := clampPage(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	search := c.Query("search", "")

	files, total, err := h.hierarchy.ListFiles(
		middleware.GetCurrentUserID(c), listScope(c, "folder_id"), page, limit, search)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    files,
		"meta":    pageMeta(page, limit, total),
	})
}

// Rename updates a file's display name
func (h *FileHandler) Rename(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	type RenameRequest struct {
		Name string `json:"name"`
	}
	var req RenameRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "File name is required",
		})
	}

	file, err := h.hierarchy.RenameFile(middleware.GetCurrentUserID(c), uint(id), req.Name)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// Move reparents a file
func (h *FileHandler) Move(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	type MoveRequest struct {
		FolderID *uint `json:"folder_id"`
	}
	var req MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	file, err := h.hierarchy.MoveFile(middleware.GetCurrentUserID(c), uint(id), req.FolderID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// RemoveFromFolder moves a file back to the root directory
func (h *FileHandler) RemoveFromFolder(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	file, err := h.hierarchy.RemoveFromFolder(middleware.GetCurrentUserID(c), uint(id))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// Delete hard-deletes a live file and returns the quota snapshot
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file id",
		})
	}

	snapshot, err := h.hierarchy.DeleteFile(middleware.GetCurrentUserID(c), uint(id))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File deleted",
		"data": fiber.Map{
			"storage": snapshot,
		},
	})
}

// Storage returns the owner's quota snapshot
func (h *FileHandler) Storage(c *fiber.Ctx) error {
	snapshot, err := h.quota.Snapshot(middleware.GetCurrentUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    snapshot,
	})
}
