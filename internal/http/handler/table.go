package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/admin"
	"habilitaciones/internal/auth"
	"habilitaciones/internal/http/middleware"
	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
)

type sortRequest struct {
	Field string `json:"field"`
}

type filterRequest struct {
	Status string `json:"status"`
}

type searchRequest struct {
	Q string `json:"q"`
}

// tableFor returns the table of the current session.
func tableFor(c *fiber.Ctx, sessions *admin.Sessions) (*admin.Table, error) {
	claims, ok := middleware.ClaimsFromCtx(c)
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return sessions.Table(claims.ID, expires), nil
}

// GetTable renders the administrator's listing, loading the first page when
// the table is new.
//
// @Summary  Review table
// @Tags     table
// @Produce  json
// @Success  200 {object} admin.View
// @Security BearerAuth
// @Router   /api/admin/table [get]
func GetTable(sessions *admin.Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tbl, err := tableFor(c, sessions)
		if err != nil {
			return writeDomainError(c, err)
		}
		v, err := tbl.Open(c.UserContext())
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(v)
	}
}

// LoadMoreRows appends the next page.
//
// @Summary  Load more rows
// @Tags     table
// @Produce  json
// @Success  200 {object} admin.View
// @Security BearerAuth
// @Router   /api/admin/table/more [post]
func LoadMoreRows(sessions *admin.Sessions) fiber.Handler {
	return tableAction(sessions, func(c *fiber.Ctx, tbl *admin.Table) error {
		return tbl.LoadMore(c.UserContext())
	})
}

// SortTable sorts by field, toggling the direction when it is already active.
//
// @Summary  Sort table
// @Tags     table
// @Accept   json
// @Produce  json
// @Param    body body sortRequest true "sort field"
// @Success  200 {object} admin.View
// @Failure  400 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/table/sort [post]
func SortTable(sessions *admin.Sessions) fiber.Handler {
	return tableAction(sessions, func(c *fiber.Ctx, tbl *admin.Table) error {
		var req sortRequest
		if err := c.BodyParser(&req); err != nil {
			return errInvalidBody
		}
		return tbl.Sort(c.UserContext(), repository.SortField(req.Field))
	})
}

// FilterTable restricts the listing to one status ("all" lifts the filter).
//
// @Summary  Filter table
// @Tags     table
// @Accept   json
// @Produce  json
// @Param    body body filterRequest true "status filter"
// @Success  200 {object} admin.View
// @Failure  400 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/table/filter [post]
func FilterTable(sessions *admin.Sessions) fiber.Handler {
	return tableAction(sessions, func(c *fiber.Ctx, tbl *admin.Table) error {
		var req filterRequest
		if err := c.BodyParser(&req); err != nil {
			return errInvalidBody
		}
		status, err := model.ParseStatusFilter(req.Status)
		if err != nil {
			return err
		}
		return tbl.Filter(c.UserContext(), status)
	})
}

// SearchTable sets the search term.
//
// @Summary  Search table
// @Tags     table
// @Accept   json
// @Produce  json
// @Param    body body searchRequest true "search term"
// @Success  200 {object} admin.View
// @Security BearerAuth
// @Router   /api/admin/table/search [post]
func SearchTable(sessions *admin.Sessions) fiber.Handler {
	return tableAction(sessions, func(c *fiber.Ctx, tbl *admin.Table) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errInvalidBody
		}
		return tbl.Search(c.UserContext(), req.Q)
	})
}

// UpdateRowStatus changes one row's status in place.
//
// @Summary  Change row status
// @Tags     table
// @Accept   json
// @Produce  json
// @Param    id   path string        true "submission id"
// @Param    body body statusRequest true "new status"
// @Success  200 {object} admin.View
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/table/rows/{id}/status [patch]
func UpdateRowStatus(sessions *admin.Sessions) fiber.Handler {
	return tableAction(sessions, func(c *fiber.Ctx, tbl *admin.Table) error {
		id, status, err := parseStatusRequest(c)
		if err != nil {
			return err
		}
		return tbl.UpdateStatus(c.UserContext(), id, status)
	})
}

// SaveRowReview stores notes and status from the detail editor.
//
// @Summary  Save row review
// @Tags     table
// @Accept   json
// @Produce  json
// @Param    id   path string        true "submission id"
// @Param    body body reviewRequest true "notes and status"
// @Success  200 {object} admin.View
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/table/rows/{id}/review [patch]
func SaveRowReview(sessions *admin.Sessions) fiber.Handler {
	return tableAction(sessions, func(c *fiber.Ctx, tbl *admin.Table) error {
		id, notes, status, err := parseReviewRequest(c)
		if err != nil {
			return err
		}
		return tbl.SaveReview(c.UserContext(), id, notes, status)
	})
}

// DeleteRow deletes the submission and drops its row.
//
// @Summary  Delete row
// @Tags     table
// @Produce  json
// @Param    id path string true "submission id"
// @Success  200 {object} admin.View
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/admin/table/rows/{id} [delete]
func DeleteRow(sessions *admin.Sessions) fiber.Handler {
	return tableAction(sessions, func(c *fiber.Ctx, tbl *admin.Table) error {
		id, err := submissionID(c)
		if err != nil {
			return err
		}
		return tbl.Delete(c.UserContext(), id)
	})
}

// tableAction runs fn on the caller's table and answers with the new view.
func tableAction(sessions *admin.Sessions, fn func(*fiber.Ctx, *admin.Table) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tbl, err := tableFor(c, sessions)
		if err != nil {
			return writeDomainError(c, err)
		}
		if err := fn(c, tbl); err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(tbl.Snapshot())
	}
}
