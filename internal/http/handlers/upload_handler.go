package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "tokoku/internal/log"
	"tokoku/internal/services"
	"tokoku/internal/storage"
)

type UploadHandler struct {
	Store   *storage.Service
	Catalog *services.CatalogService
}

// store saves the multipart "file" field into bucket.
func (h *UploadHandler) store(c *fiber.Ctx, bucket string) (storage.Object, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return storage.Object{}, fiber.NewError(fiber.StatusBadRequest, "missing file")
	}
	f, err := fh.Open()
	if err != nil {
		return storage.Object{}, err
	}
	defer f.Close()
	obj, err := h.Store.Upload(c.UserContext(), bucket, fh.Filename, fh.Header.Get(fiber.HeaderContentType), f)
	if err != nil {
		applog.Security(c, "upload.reject", map[string]any{"bucket": bucket, "name": fh.Filename, "error": err.Error()})
		return storage.Object{}, err
	}
	applog.Audit(c, "admin.upload", map[string]any{"bucket": bucket, "key": obj.Key, "size": obj.Size})
	return obj, nil
}

// POST /api/v1/admin/uploads/:bucket
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	obj, err := h.store(c, c.Params("bucket"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// DELETE /api/v1/admin/uploads/:bucket/*
func (h *UploadHandler) Delete(c *fiber.Ctx) error {
	bucket, key := c.Params("bucket"), c.Params("*")
	if err := h.Store.Delete(c.UserContext(), bucket, key); err != nil {
		return err
	}
	applog.Audit(c, "admin.upload.delete", map[string]any{"bucket": bucket, "key": key})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/admin/products/:id/image
func (h *UploadHandler) ProductImage(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Catalog.GetProduct(c.UserContext(), id); err != nil {
		return err
	}
	obj, err := h.store(c, storage.BucketProductImages)
	if err != nil {
		return err
	}
	p, err := h.Catalog.SetProductImage(c.UserContext(), id, obj.URL)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// POST /api/v1/admin/categories/:id/icon
func (h *UploadHandler) CategoryIcon(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Catalog.GetCategory(c.UserContext(), id); err != nil {
		return err
	}
	obj, err := h.store(c, storage.BucketCategoryIcons)
	if err != nil {
		return err
	}
	cat, err := h.Catalog.SetCategoryIcon(c.UserContext(), id, obj.URL)
	if err != nil {
		return err
	}
	return c.JSON(cat)
}
