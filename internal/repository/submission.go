package repository

import (
	"context"
	"errors"

	"habilitaciones/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

var (
	// ErrNotFound is returned by partial updates and deletes that matched no row.
	ErrNotFound      = errors.New("submission not found")
	ErrInvalidSort   = errors.New("invalid sort field or direction")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// SubmissionRepository is the document store for submissions. Search filtering
// and id/timestamp assignment happen in the service layer.
type SubmissionRepository interface {
	// Create inserts a new submission. The caller provides ID and Timestamp.
	Create(ctx context.Context, s *model.Submission) (*model.Submission, error)

	// FindByID returns a submission by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Submission, error)

	// List returns one ordered page, optionally restricted to a status and
	// continued after ListQuery.Cursor.
	List(ctx context.Context, q ListQuery) (*Page, error)

	// Count returns the number of stored submissions, ignoring any filter.
	Count(ctx context.Context) (int, error)

	// UpdateStatus writes only the status column.
	UpdateStatus(ctx context.Context, id string, status model.Status) error

	// UpdateReview writes only the notes and status columns.
	UpdateReview(ctx context.Context, id string, notes string, status model.Status) error

	// Delete removes a submission permanently.
	Delete(ctx context.Context, id string) error
}

// ListQuery holds keyset pagination parameters.
type ListQuery struct {
	Sort      SortField
	Direction Direction
	// Status restricts the page to one status; StatusNone means no restriction.
	Status model.Status
	Cursor string
	Limit  int
}

// Page is one server page of submissions.
type Page struct {
	Items []model.Submission
	// Cursor points at the last item of Items; empty when Items is empty.
	Cursor string
}
