package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/intake"
	"habilitaciones/internal/uploader"
)

const fileField = "file"

var (
	errFileRequired = errors.New("file is required")
	errTooManyFiles = errors.New("slot accepts one file per request")
)

// ListSlots describes the attachment inputs of the form.
//
// @Summary  Attachment slots
// @Tags     forms
// @Produce  json
// @Success  200 {array} intake.Slot
// @Router   /api/forms/slots [get]
func ListSlots() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(intake.Slots)
	}
}

// CreateForm opens a new draft on the first section.
//
// @Summary  New form
// @Tags     forms
// @Produce  json
// @Success  201 {object} intake.View
// @Router   /api/forms [post]
func CreateForm(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).JSON(svc.Create())
	}
}

// GetForm renders a draft, including upload progress.
//
// @Summary  Get form
// @Tags     forms
// @Produce  json
// @Param    id path string true "draft id"
// @Success  200 {object} intake.View
// @Failure  404 {object} errorPayload
// @Router   /api/forms/{id} [get]
func GetForm(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Get(c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(v)
	}
}

// SetFormFields updates field values. Keys are the JSON field names.
//
// @Summary  Update fields
// @Tags     forms
// @Accept   json
// @Produce  json
// @Param    id   path string            true "draft id"
// @Param    body body map[string]string true "field values"
// @Success  200 {object} intake.View
// @Failure  400 {object} errorPayload
// @Router   /api/forms/{id}/fields [patch]
func SetFormFields(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		values := map[string]string{}
		if err := c.BodyParser(&values); err != nil {
			return writeDomainError(c, errInvalidBody)
		}
		v, err := svc.SetFields(c.Params("id"), values)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(v)
	}
}

// NextSection moves the draft one section forward.
//
// @Summary  Next section
// @Tags     forms
// @Produce  json
// @Param    id path string true "draft id"
// @Success  200 {object} intake.View
// @Failure  409 {object} errorPayload
// @Router   /api/forms/{id}/next [post]
func NextSection(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Next(c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(v)
	}
}

// PreviousSection moves the draft one section back.
//
// @Summary  Previous section
// @Tags     forms
// @Produce  json
// @Param    id path string true "draft id"
// @Success  200 {object} intake.View
// @Failure  409 {object} errorPayload
// @Router   /api/forms/{id}/back [post]
func PreviousSection(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Back(c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(v)
	}
}

// AddAttachment starts uploading the multipart "file" parts into a slot.
// Only the multiple-file slot takes more than one part per request. The
// upload continues after the response; poll the form for progress.
//
// @Summary  Add attachment
// @Tags     forms
// @Accept   multipart/form-data
// @Produce  json
// @Param    id   path     string true "draft id"
// @Param    slot path     string true "slot id"
// @Param    file formData file   true "attachment"
// @Success  202 {array} intake.AttachmentView
// @Failure  400 {object} errorPayload
// @Failure  413 {object} errorPayload
// @Router   /api/forms/{id}/attachments/{slot} [post]
func AddAttachment(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slot, ok := intake.LookupSlot(c.Params("slot"))
		if !ok {
			return writeDomainError(c, intake.ErrUnknownSlot)
		}
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		files := form.File[fileField]
		switch {
		case len(files) == 0:
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", errFileRequired.Error())
		case len(files) > 1 && !slot.Multiple:
			return writeError(c, fiber.StatusBadRequest, "TOO_MANY_FILES", errTooManyFiles.Error())
		}
		for _, fh := range files {
			if fh.Size > uploader.MaxFileSize {
				return writeDomainError(c, uploader.ErrFileTooLarge)
			}
		}

		out := make([]intake.AttachmentView, 0, len(files))
		for _, fh := range files {
			// The request body is recycled once the handler returns, so the
			// upload works from its own copy.
			data, err := readPart(fh)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			ct := fh.Header.Get(fiber.HeaderContentType)
			if ct == "" {
				ct = "application/octet-stream"
			}
			av, err := svc.AddAttachment(c.UserContext(), c.Params("id"), slot.ID, fh.Filename, bytes.NewReader(data), int64(len(data)), ct)
			if err != nil {
				return writeDomainError(c, err)
			}
			out = append(out, av)
		}
		return c.Status(fiber.StatusAccepted).JSON(out)
	}
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, uploader.MaxFileSize+1))
}

// RemoveAttachment drops an attachment and deletes its stored file.
//
// @Summary  Remove attachment
// @Tags     forms
// @Param    id           path string true "draft id"
// @Param    attachmentID path string true "attachment id"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /api/forms/{id}/attachments/{attachmentID} [delete]
func RemoveAttachment(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.RemoveAttachment(c.UserContext(), c.Params("id"), c.Params("attachmentID")); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SubmitForm validates the draft, waits for its uploads and stores it.
//
// @Summary  Submit form
// @Tags     forms
// @Produce  json
// @Param    id path string true "draft id"
// @Success  201 {object} intake.View
// @Failure  400 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /api/forms/{id}/submit [post]
func SubmitForm(svc *intake.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := svc.Submit(c.UserContext(), id); err != nil {
			return writeDomainError(c, err)
		}
		v, err := svc.Get(id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}
