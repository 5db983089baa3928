package handler

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"habilitaciones/internal/admin"
	"habilitaciones/internal/export"
	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
	"habilitaciones/internal/service"
)

const exportFilename = "solicitudes.xlsx"

type statusRequest struct {
	Status string `json:"status"`
}

type reviewRequest struct {
	Notes  string `json:"notes"`
	Status string `json:"status"`
}

// submissionID validates the :id route parameter.
func submissionID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", errInvalidID
	}
	return id, nil
}

// ListSubmissions serves one stateless page of submissions.
//
// @Summary  List submissions
// @Tags     admin
// @Produce  json
// @Param    sort   query string false "timestamp, person_type, national_id, surname, email, category or sub_category"
// @Param    dir    query string false "asc or desc"
// @Param    status query string false "all, pendiente, en_revision or finalizado"
// @Param    q      query string false "search term over national id, surname and email"
// @Param    cursor query string false "next_cursor of the previous page"
// @Success  200 {object} service.PageResult
// @Failure  400 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/submissions [get]
func ListSubmissions(svc service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sortField, dir, err := repository.ParseSort(c.Query("sort"), c.Query("dir"))
		if err != nil {
			return writeDomainError(c, err)
		}
		status, err := model.ParseStatusFilter(c.Query("status"))
		if err != nil {
			return writeDomainError(c, err)
		}

		res, err := svc.ListPage(c.UserContext(), service.PageRequest{
			Sort:      sortField,
			Direction: dir,
			Status:    status,
			Search:    c.Query("q"),
			Cursor:    c.Query("cursor"),
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(res)
	}
}

// CountSubmissions returns the number of stored submissions.
//
// @Summary  Count submissions
// @Tags     admin
// @Produce  json
// @Success  200 {object} map[string]int
// @Security BearerAuth
// @Router   /api/admin/submissions/count [get]
func CountSubmissions(svc service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := svc.Count(c.UserContext())
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(fiber.Map{"total": n})
	}
}

// ExportSubmissions downloads every submission matching the status filter as
// a spreadsheet.
//
// @Summary  Export submissions
// @Tags     admin
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param    status query string false "all, pendiente, en_revision or finalizado"
// @Success  200 {file} file
// @Security BearerAuth
// @Router   /api/admin/submissions/export.xlsx [get]
func ExportSubmissions(svc service.SubmissionService, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := model.ParseStatusFilter(c.Query("status"))
		if err != nil {
			return writeDomainError(c, err)
		}
		subs, err := svc.Export(c.UserContext(), status)
		if err != nil {
			return writeDomainError(c, err)
		}

		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, subs, loc); err != nil {
			return writeDomainError(c, err)
		}
		c.Attachment(exportFilename)
		c.Set(fiber.HeaderContentType, export.ContentType)
		return c.Send(buf.Bytes())
	}
}

// GetSubmission returns the labelled detail view of one submission.
//
// @Summary  Submission detail
// @Tags     admin
// @Produce  json
// @Param    id path string true "submission id"
// @Success  200 {object} admin.Detail
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/submissions/{id} [get]
func GetSubmission(svc service.SubmissionService, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := submissionID(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		sub, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(admin.NewDetail(*sub, loc))
	}
}

// UpdateSubmissionStatus sets the review status.
//
// @Summary  Change status
// @Tags     admin
// @Accept   json
// @Param    id   path string        true "submission id"
// @Param    body body statusRequest true "new status"
// @Success  204
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/submissions/{id}/status [patch]
func UpdateSubmissionStatus(svc service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, status, err := parseStatusRequest(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		if err := svc.UpdateStatus(c.UserContext(), id, status); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SaveSubmissionReview stores reviewer notes together with the status.
//
// @Summary  Save review
// @Tags     admin
// @Accept   json
// @Param    id   path string        true "submission id"
// @Param    body body reviewRequest true "notes and status"
// @Success  204
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/submissions/{id}/review [patch]
func SaveSubmissionReview(svc service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, notes, status, err := parseReviewRequest(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		if err := svc.SaveReview(c.UserContext(), id, notes, status); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteSubmission removes a submission record. Its files stay in storage.
//
// @Summary  Delete submission
// @Tags     admin
// @Param    id path string true "submission id"
// @Success  204
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/submissions/{id} [delete]
func DeleteSubmission(svc service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := submissionID(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func parseStatusRequest(c *fiber.Ctx) (string, model.Status, error) {
	id, err := submissionID(c)
	if err != nil {
		return "", "", err
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return "", "", errInvalidBody
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return "", "", err
	}
	return id, status, nil
}

func parseReviewRequest(c *fiber.Ctx) (string, string, model.Status, error) {
	id, err := submissionID(c)
	if err != nil {
		return "", "", "", err
	}
	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return "", "", "", errInvalidBody
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return "", "", "", err
	}
	return id, req.Notes, status, nil
}
