// Package admin holds the reviewer-side state: one listing table per signed-in
// administrator, and the read-only detail rendering of a submission.
package admin

import (
	"context"
	"sync"
	"sync/atomic"

	"habilitaciones/internal/logging"
	"habilitaciones/internal/metrics"
	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
	"habilitaciones/internal/service"
)

// Table is the accumulated listing of one administrator. Operations are
// serialized: each holds the table for the whole fetch, so appends and cursor
// updates land in the order requests arrived.
type Table struct {
	svc     service.SubmissionService
	log     *logging.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	rows      []model.Submission
	cursor    string
	total     int
	exhausted bool
	loaded    bool
	loading   atomic.Bool
	sort      repository.SortField
	dir       repository.Direction
	status    model.Status
	search    string
}

// NewTable returns an empty table sorted newest first with no filter.
func NewTable(svc service.SubmissionService, log *logging.Logger, m *metrics.Metrics) *Table {
	return &Table{
		svc:     svc,
		log:     log.With("admin_table"),
		metrics: m,
		sort:    repository.SortTimestamp,
		dir:     repository.Desc,
	}
}

// LoadMore fetches the next page with the current parameters and appends the
// rows that match the search term. On failure the table is left as it was.
func (t *Table) LoadMore(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fetch(ctx)
}

// Open loads the first page the first time the table is shown, or again after
// a Reset, and renders it.
func (t *Table) Open(ctx context.Context) (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		if err := t.fetch(ctx); err != nil {
			return t.snapshot(), err
		}
	}
	return t.snapshot(), nil
}

// Sort toggles the direction when field is already active and ascending;
// any other click sorts field ascending. The listing restarts.
func (t *Table) Sort(ctx context.Context, field repository.SortField) error {
	if _, ok := field.Column(); !ok {
		return repository.ErrInvalidSort
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := repository.Asc
	if field == t.sort && t.dir == repository.Asc {
		dir = repository.Desc
	}
	t.sort, t.dir = field, dir
	t.restart()
	return t.fetch(ctx)
}

// Filter restricts the listing to one status; StatusNone lists all.
func (t *Table) Filter(ctx context.Context, status model.Status) error {
	if status != model.StatusNone {
		if _, err := model.ParseStatus(string(status)); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.restart()
	return t.fetch(ctx)
}

// Search sets the term matched against national ID, surname and email.
func (t *Table) Search(ctx context.Context, term string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.search = term
	t.restart()
	return t.fetch(ctx)
}

// UpdateStatus writes the status, then patches only that row.
func (t *Table) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.svc.UpdateStatus(ctx, id, status); err != nil {
		t.log.Error("status_update", err, map[string]any{"submission_id": id})
		return err
	}
	t.metrics.StatusChange(string(status))
	t.patch(id, func(s *model.Submission) { s.Status = status })
	return nil
}

// SaveReview writes notes and status from the detail editor, then patches the row.
func (t *Table) SaveReview(ctx context.Context, id, notes string, status model.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.svc.SaveReview(ctx, id, notes, status); err != nil {
		t.log.Error("review_update", err, map[string]any{"submission_id": id})
		return err
	}
	t.metrics.StatusChange(string(status))
	t.patch(id, func(s *model.Submission) {
		s.Status = status
		s.Notes = notes
	})
	return nil
}

// Delete removes the record, drops its row and decrements the total.
func (t *Table) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.svc.Delete(ctx, id); err != nil {
		t.log.Error("delete", err, map[string]any{"submission_id": id})
		return err
	}
	t.metrics.Deletion()
	for i := range t.rows {
		if t.rows[i].ID == id {
			t.rows = append(t.rows[:i:i], t.rows[i+1:]...)
			break
		}
	}
	if t.total > 0 {
		t.total--
	}
	return nil
}

// Loading reports whether a fetch is in flight. It does not wait for the table.
func (t *Table) Loading() bool {
	return t.loading.Load()
}

// Reset forgets the accumulated rows and cursor, keeping sort and filters.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restart()
}

// View is the rendering of a table.
type View struct {
	Rows      []model.Submission   `json:"data"`
	Shown     int                  `json:"shown"`
	Total     int                  `json:"total"`
	Sort      repository.SortField `json:"sort"`
	Direction repository.Direction `json:"dir"`
	Status    string               `json:"status"`
	Search    string               `json:"q"`
	HasMore   bool                 `json:"has_more"`
	Loading   bool                 `json:"loading"`
}

// Snapshot renders the table. Rows are copied.
func (t *Table) Snapshot() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Table) snapshot() View {
	status := string(t.status)
	if t.status == model.StatusNone {
		status = model.StatusFilterAll
	}
	rows := make([]model.Submission, len(t.rows))
	copy(rows, t.rows)
	return View{
		Rows:      rows,
		Shown:     len(rows),
		Total:     t.total,
		Sort:      t.sort,
		Direction: t.dir,
		Status:    status,
		Search:    t.search,
		HasMore:   !t.exhausted,
		Loading:   t.loading.Load(),
	}
}

// restart clears rows and cursor. Caller holds t.mu.
func (t *Table) restart() {
	t.rows = nil
	t.cursor = ""
	t.exhausted = false
	t.loaded = false
}

// fetch loads one page and the total count. Caller holds t.mu.
func (t *Table) fetch(ctx context.Context) error {
	if t.exhausted {
		return nil
	}
	t.loading.Store(true)
	defer t.loading.Store(false)

	page, err := t.svc.ListPage(ctx, service.PageRequest{
		Sort:      t.sort,
		Direction: t.dir,
		Status:    t.status,
		Search:    t.search,
		Cursor:    t.cursor,
	})
	if err != nil {
		t.log.Error("list_page", err, map[string]any{"sort": t.sort, "dir": t.dir, "status": t.status})
		return err
	}
	total, err := t.svc.Count(ctx)
	if err != nil {
		t.log.Error("count", err, nil)
		return err
	}

	t.rows = append(t.rows, page.Items...)
	if page.NextCursor != "" {
		t.cursor = page.NextCursor
	}
	t.exhausted = page.Exhausted
	t.loaded = true
	t.total = total
	return nil
}

// patch applies fn to the row with id, if loaded. Caller holds t.mu.
func (t *Table) patch(id string, fn func(*model.Submission)) {
	for i := range t.rows {
		if t.rows[i].ID == id {
			fn(&t.rows[i])
			return
		}
	}
}
