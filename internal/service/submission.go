package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrNotFound      = errors.New("submission not found")
	ErrInvalidStatus = model.ErrInvalidStatus
	ErrInvalidSort   = repository.ErrInvalidSort
	ErrInvalidCursor = repository.ErrInvalidCursor
)

// DefaultPageSize is the number of rows fetched per server page.
const DefaultPageSize = 10

const exportPageSize = 200

// PageRequest describes one listing request. Zero Sort/Direction select
// newest-first ordering; StatusNone lists every status.
type PageRequest struct {
	Sort      repository.SortField
	Direction repository.Direction
	Status    model.Status
	Search    string
	Cursor    string
}

// PageResult is the service-level DTO for one listing page.
//
// Items holds the rows of one server page that match Search, so it may be
// shorter than the page size or even empty while NextCursor still points further.
type PageResult struct {
	Items      []model.Submission `json:"data"`
	NextCursor string             `json:"next_cursor,omitempty"`
	// Fetched is the number of rows the server page held before searching.
	Fetched   int  `json:"fetched"`
	Exhausted bool `json:"exhausted"`
}

// SubmissionService defines the use cases around stored submissions.
type SubmissionService interface {
	ListPage(ctx context.Context, req PageRequest) (*PageResult, error)
	// Count returns the number of stored submissions regardless of filters.
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (*model.Submission, error)
	// Create assigns the id and the creation timestamp, then stores s.
	Create(ctx context.Context, s *model.Submission) (*model.Submission, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	// SaveReview writes the reviewer notes together with the status.
	SaveReview(ctx context.Context, id string, notes string, status model.Status) error
	Delete(ctx context.Context, id string) error
	// Export walks every page matching status, oldest first.
	Export(ctx context.Context, status model.Status) ([]model.Submission, error)
}

type submissionService struct {
	repo     repository.SubmissionRepository
	pageSize int
	now      func() time.Time
}

// NewSubmissionService constructs a SubmissionService. A non-positive pageSize
// selects DefaultPageSize.
func NewSubmissionService(repo repository.SubmissionRepository, pageSize int) SubmissionService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &submissionService{repo: repo, pageSize: pageSize, now: time.Now}
}

func (s *submissionService) ListPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	sortField, dir, err := repository.ParseSort(string(req.Sort), string(req.Direction))
	if err != nil {
		return nil, err
	}
	if req.Status != model.StatusNone {
		if _, err := model.ParseStatus(string(req.Status)); err != nil {
			return nil, err
		}
	}

	page, err := s.repo.List(ctx, repository.ListQuery{
		Sort:      sortField,
		Direction: dir,
		Status:    req.Status,
		Cursor:    req.Cursor,
		Limit:     s.pageSize,
	})
	if err != nil {
		return nil, err
	}

	return &PageResult{
		Items:      FilterSearch(page.Items, req.Search),
		NextCursor: page.Cursor,
		Fetched:    len(page.Items),
		Exhausted:  len(page.Items) < s.pageSize,
	}, nil
}

// FilterSearch keeps the rows whose national ID, surname or email contains
// term, ignoring case. A blank term keeps every row.
func FilterSearch(items []model.Submission, term string) []model.Submission {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.Submission, 0, len(items))
	for _, it := range items {
		if term == "" ||
			strings.Contains(strings.ToLower(it.NationalID), term) ||
			strings.Contains(strings.ToLower(it.Surname), term) ||
			strings.Contains(strings.ToLower(it.Email), term) {
			out = append(out, it)
		}
	}
	return out
}

func (s *submissionService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *submissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return sub, nil
}

func (s *submissionService) Create(ctx context.Context, sub *model.Submission) (*model.Submission, error) {
	rec := *sub
	rec.ID = uuid.New().String()
	rec.Timestamp = s.now().UTC()
	rec.FileURLs = append([]string(nil), sub.FileURLs...)
	if rec.FileURLs == nil {
		rec.FileURLs = []string{}
	}

	stored, err := s.repo.Create(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	return stored, nil
}

func (s *submissionService) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if id == "" {
		return ErrIDRequired
	}
	if _, err := model.ParseStatus(string(status)); err != nil {
		return err
	}
	return mapNotFound(s.repo.UpdateStatus(ctx, id, status))
}

func (s *submissionService) SaveReview(ctx context.Context, id string, notes string, status model.Status) error {
	if id == "" {
		return ErrIDRequired
	}
	if _, err := model.ParseStatus(string(status)); err != nil {
		return err
	}
	return mapNotFound(s.repo.UpdateReview(ctx, id, notes, status))
}

// Delete removes the record only; attachment objects stay in storage.
func (s *submissionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return mapNotFound(s.repo.Delete(ctx, id))
}

func (s *submissionService) Export(ctx context.Context, status model.Status) ([]model.Submission, error) {
	var (
		all    []model.Submission
		cursor string
	)
	for {
		page, err := s.repo.List(ctx, repository.ListQuery{
			Sort:      repository.SortTimestamp,
			Direction: repository.Asc,
			Status:    status,
			Cursor:    cursor,
			Limit:     exportPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("export page: %w", err)
		}
		all = append(all, page.Items...)
		if len(page.Items) < exportPageSize {
			return all, nil
		}
		cursor = page.Cursor
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
