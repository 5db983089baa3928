package handler

import (
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/storage"
	"habilitaciones/internal/uploader"
)

// GetFile streams a stored attachment by its renamed file name.
//
// @Summary  Download attachment
// @Tags     files
// @Produce  octet-stream
// @Param    name   path string true "stored file name"
// @Success  200 {file} file
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /files/{name} [get]
func GetFile(store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil || name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
			return writeError(c, fiber.StatusBadRequest, "INVALID_NAME", "invalid file name")
		}

		rc, info, err := store.Get(c.UserContext(), uploader.ObjectKey(name))
		if err != nil {
			return writeDomainError(c, err)
		}

		ct := info.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": name}))
		if info.ETag != "" {
			c.Set(fiber.HeaderETag, strconv.Quote(info.ETag))
		}
		size := -1
		if info.Size >= 0 {
			size = int(info.Size)
		}
		// fasthttp closes rc once the body has been written.
		return c.SendStream(rc, size)
	}
}
