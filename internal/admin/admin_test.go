package admin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"habilitaciones/internal/auth"
	"habilitaciones/internal/logging"
	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
	"habilitaciones/internal/service"
	svcMocks "habilitaciones/internal/service/mocks"
)

func page(from, n int, status model.Status) []model.Submission {
	out := make([]model.Submission, n)
	for i := range out {
		out[i] = model.Submission{
			ID:        fmt.Sprintf("id-%02d", from+i),
			Surname:   fmt.Sprintf("Surname %02d", from+i),
			Status:    status,
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(from+i) * time.Hour),
		}
	}
	return out
}

func ids(rows []model.Submission) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func newTable(svc service.SubmissionService) *Table {
	return NewTable(svc, logging.Nop(), nil)
}

// A: first page, no filters, newest first.
func TestTable_FirstPage(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, service.PageRequest{Sort: repository.SortTimestamp, Direction: repository.Desc}).
		Return(&service.PageResult{Items: page(0, 10, model.StatusPending), NextCursor: "c1", Fetched: 10}, nil)
	svc.On("Count", ctx).Return(42, nil)

	tbl := newTable(svc)
	require.NoError(t, tbl.LoadMore(ctx))

	v := tbl.Snapshot()
	assert.Len(t, v.Rows, 10)
	assert.Equal(t, 42, v.Total)
	assert.Equal(t, "all", v.Status)
	assert.True(t, v.HasMore)
	assert.False(t, v.Loading)
	for i := 1; i < len(v.Rows); i++ {
		assert.True(t, v.Rows[i-1].Timestamp.After(v.Rows[i].Timestamp))
	}
	svc.AssertExpectations(t)
}

func TestTable_OpenLoadsOnce(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, mock.Anything).
		Return(&service.PageResult{Items: page(0, 10, ""), NextCursor: "c1", Fetched: 10}, nil).Once()
	svc.On("Count", ctx).Return(30, nil).Once()

	tbl := newTable(svc)
	v, err := tbl.Open(ctx)
	require.NoError(t, err)
	assert.Len(t, v.Rows, 10)

	v, err = tbl.Open(ctx)
	require.NoError(t, err)
	assert.Len(t, v.Rows, 10)
	svc.AssertNumberOfCalls(t, "ListPage", 1)
}

func TestTable_LoadMoreAppendsWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	base := service.PageRequest{Sort: repository.SortTimestamp, Direction: repository.Desc}

	svc.On("ListPage", ctx, base).Return(&service.PageResult{Items: page(0, 10, ""), NextCursor: "c1", Fetched: 10}, nil).Once()
	next := base
	next.Cursor = "c1"
	svc.On("ListPage", ctx, next).Return(&service.PageResult{Items: page(10, 4, ""), NextCursor: "c2", Fetched: 4, Exhausted: true}, nil).Once()
	svc.On("Count", ctx).Return(14, nil)

	tbl := newTable(svc)
	for i := 0; i < 4; i++ {
		require.NoError(t, tbl.LoadMore(ctx))
	}

	v := tbl.Snapshot()
	assert.Len(t, v.Rows, 14)
	assert.False(t, v.HasMore)
	seen := make(map[string]bool)
	for _, id := range ids(v.Rows) {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	svc.AssertExpectations(t)
}

func TestTable_FetchFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, mock.MatchedBy(func(r service.PageRequest) bool { return r.Cursor == "" })).
		Return(&service.PageResult{Items: page(0, 10, ""), NextCursor: "c1", Fetched: 10}, nil).Once()
	svc.On("ListPage", ctx, mock.MatchedBy(func(r service.PageRequest) bool { return r.Cursor == "c1" })).
		Return(nil, errors.New("unavailable")).Once()
	svc.On("Count", ctx).Return(20, nil).Once()

	tbl := newTable(svc)
	require.NoError(t, tbl.LoadMore(ctx))
	before := tbl.Snapshot()

	assert.Error(t, tbl.LoadMore(ctx))
	after := tbl.Snapshot()
	assert.Equal(t, before, after)
	assert.False(t, tbl.Loading())
}

// B: changing the filter restarts from an empty list and no cursor.
func TestTable_FilterRestarts(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, service.PageRequest{Sort: repository.SortTimestamp, Direction: repository.Desc}).
		Return(&service.PageResult{Items: page(0, 10, model.StatusPending), NextCursor: "c1", Fetched: 10}, nil).Once()
	svc.On("ListPage", ctx, service.PageRequest{Sort: repository.SortTimestamp, Direction: repository.Desc, Status: model.StatusFinished}).
		Return(&service.PageResult{Items: page(50, 2, model.StatusFinished), NextCursor: "f1", Fetched: 2, Exhausted: true}, nil).Once()
	svc.On("Count", ctx).Return(30, nil)

	tbl := newTable(svc)
	require.NoError(t, tbl.LoadMore(ctx))
	require.NoError(t, tbl.Filter(ctx, model.StatusFinished))

	v := tbl.Snapshot()
	assert.Equal(t, []string{"id-50", "id-51"}, ids(v.Rows))
	assert.Equal(t, "finalizado", v.Status)
	for _, r := range v.Rows {
		assert.Equal(t, model.StatusFinished, r.Status)
	}
	assert.ErrorIs(t, tbl.Filter(ctx, "archived"), model.ErrInvalidStatus)
	svc.AssertExpectations(t)
}

func TestTable_SortToggle(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	var requests []service.PageRequest
	svc.On("ListPage", ctx, mock.Anything).Run(func(args mock.Arguments) {
		requests = append(requests, args.Get(1).(service.PageRequest))
	}).Return(&service.PageResult{Items: page(0, 1, ""), Fetched: 1, Exhausted: true}, nil)
	svc.On("Count", ctx).Return(1, nil)

	tbl := newTable(svc)
	require.NoError(t, tbl.Sort(ctx, repository.SortTimestamp))
	require.NoError(t, tbl.Sort(ctx, repository.SortTimestamp))
	require.NoError(t, tbl.Sort(ctx, repository.SortTimestamp))
	require.NoError(t, tbl.Sort(ctx, repository.SortSurname))
	assert.ErrorIs(t, tbl.Sort(ctx, "phone"), repository.ErrInvalidSort)

	require.Len(t, requests, 4)
	assert.Equal(t, repository.Asc, requests[0].Direction, "timestamp starts desc, so the first click sorts asc")
	assert.Equal(t, repository.Desc, requests[1].Direction)
	assert.Equal(t, repository.Asc, requests[2].Direction)
	assert.Equal(t, repository.SortSurname, requests[3].Sort)
	assert.Equal(t, repository.Asc, requests[3].Direction)
	for _, r := range requests {
		assert.Empty(t, r.Cursor)
	}
	assert.Len(t, tbl.Snapshot().Rows, 1, "rows are replaced, not appended across sorts")
}

func TestTable_SearchRestarts(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, service.PageRequest{Sort: repository.SortTimestamp, Direction: repository.Desc, Search: "garcía"}).
		Return(&service.PageResult{Items: nil, NextCursor: "c1", Fetched: 10}, nil).Once()
	svc.On("Count", ctx).Return(10, nil)

	tbl := newTable(svc)
	require.NoError(t, tbl.Search(ctx, "garcía"))
	v := tbl.Snapshot()
	assert.Empty(t, v.Rows, "a full server page may yield no matches")
	assert.True(t, v.HasMore)
	assert.Equal(t, "garcía", v.Search)
}

// C: a status update touches only the target row.
func TestTable_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	rows := page(0, 3, model.StatusPending)
	rows[1].ID = "abc123"
	svc.On("ListPage", ctx, mock.Anything).Return(&service.PageResult{Items: rows, Fetched: 3, Exhausted: true}, nil)
	svc.On("Count", ctx).Return(3, nil)
	svc.On("UpdateStatus", ctx, "abc123", model.StatusInReview).Return(nil)
	svc.On("UpdateStatus", ctx, "gone", model.StatusInReview).Return(service.ErrNotFound)

	tbl := newTable(svc)
	require.NoError(t, tbl.LoadMore(ctx))
	before := tbl.Snapshot()

	require.NoError(t, tbl.UpdateStatus(ctx, "abc123", model.StatusInReview))
	after := tbl.Snapshot()

	require.Len(t, after.Rows, 3)
	assert.Equal(t, model.StatusInReview, after.Rows[1].Status)
	patched := after.Rows[1]
	patched.Status = model.StatusPending
	assert.Equal(t, before.Rows[1], patched)
	assert.Equal(t, before.Rows[0], after.Rows[0])
	assert.Equal(t, before.Rows[2], after.Rows[2])

	assert.ErrorIs(t, tbl.UpdateStatus(ctx, "gone", model.StatusInReview), service.ErrNotFound)
	assert.Equal(t, after, tbl.Snapshot())
}

func TestTable_UpdateStatusDoesNotRefilter(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, mock.Anything).Return(&service.PageResult{Items: page(0, 2, model.StatusPending), Fetched: 2, Exhausted: true}, nil)
	svc.On("Count", ctx).Return(2, nil)
	svc.On("SaveReview", ctx, "id-00", "falta plano", model.StatusFinished).Return(nil)

	tbl := newTable(svc)
	require.NoError(t, tbl.Filter(ctx, model.StatusPending))
	require.NoError(t, tbl.SaveReview(ctx, "id-00", "falta plano", model.StatusFinished))

	v := tbl.Snapshot()
	require.Len(t, v.Rows, 2)
	assert.Equal(t, model.StatusFinished, v.Rows[0].Status)
	assert.Equal(t, "falta plano", v.Rows[0].Notes)
}

// D: deleting removes exactly one row and decrements the total.
func TestTable_Delete(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	rows := page(0, 10, "")
	rows[4].ID = "abc123"
	svc.On("ListPage", ctx, mock.Anything).Return(&service.PageResult{Items: rows, NextCursor: "c1", Fetched: 10}, nil).Once()
	svc.On("Count", ctx).Return(42, nil)
	svc.On("Delete", ctx, "abc123").Return(nil).Once()
	svc.On("Delete", ctx, "abc123").Return(service.ErrNotFound).Once()

	tbl := newTable(svc)
	require.NoError(t, tbl.LoadMore(ctx))
	require.NoError(t, tbl.Delete(ctx, "abc123"))

	v := tbl.Snapshot()
	assert.Equal(t, 41, v.Total)
	assert.Len(t, v.Rows, 9)
	assert.NotContains(t, ids(v.Rows), "abc123")

	assert.ErrorIs(t, tbl.Delete(ctx, "abc123"), service.ErrNotFound)
	assert.Equal(t, 41, tbl.Snapshot().Total)
}

func TestSessions_SignOutClearsOnlyThatSession(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, mock.Anything).Return(&service.PageResult{Items: page(0, 3, ""), Fetched: 3, Exhausted: true}, nil)
	svc.On("Count", ctx).Return(3, nil)

	sessions := NewSessions(svc, logging.Nop(), nil)
	ana := auth.Identity{Subject: "google:1"}
	exp := time.Now().Add(time.Hour)

	laptop := sessions.Table("tok-laptop", exp)
	phone := sessions.Table("tok-phone", exp)
	require.NoError(t, laptop.LoadMore(ctx))
	require.NoError(t, phone.LoadMore(ctx))
	assert.Same(t, laptop, sessions.Table("tok-laptop", exp))
	assert.NotSame(t, laptop, phone)

	sessions.Handle(auth.Event{Kind: auth.SignedIn, SessionID: "tok-laptop", Identity: ana})
	assert.Len(t, laptop.Snapshot().Rows, 3)

	sessions.Handle(auth.Event{Kind: auth.SignedOut, SessionID: "tok-laptop", Identity: ana})
	assert.Empty(t, laptop.Snapshot().Rows)
	assert.Equal(t, 1, sessions.Len())
	assert.NotSame(t, laptop, sessions.Table("tok-laptop", exp))
	assert.Len(t, phone.Snapshot().Rows, 3)
	assert.Same(t, phone, sessions.Table("tok-phone", exp))
}

func TestSessions_ExpiredSessionsAreSwept(t *testing.T) {
	ctx := context.Background()
	svc := new(svcMocks.MockSubmissionService)
	svc.On("ListPage", ctx, mock.Anything).Return(&service.PageResult{Items: page(0, 2, ""), Fetched: 2, Exhausted: true}, nil)
	svc.On("Count", ctx).Return(2, nil)

	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	sessions := NewSessions(svc, logging.Nop(), nil)
	sessions.now = func() time.Time { return now }

	old := sessions.Table("tok-old", now.Add(time.Minute))
	require.NoError(t, old.LoadMore(ctx))
	sessions.Table("tok-forever", time.Time{})

	now = now.Add(2 * time.Minute)
	fresh := sessions.Table("tok-new", now.Add(time.Hour))

	assert.Equal(t, 2, sessions.Len())
	assert.Empty(t, old.Snapshot().Rows)
	assert.NotSame(t, old, sessions.Table("tok-old", now.Add(time.Hour)))
	assert.Same(t, fresh, sessions.Table("tok-new", now.Add(time.Hour)))
}

func TestNewDetail(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	d := NewDetail(model.Submission{
		ID:         "abc123",
		PersonType: model.PersonOrganization,
		NationalID: model.NationalIDPlaceholder,
		TaxID:      "30-71234567-8",
		Surname:    "Panadería Sur SRL",
		Category:   model.CategoryCommercial,
		FileURLs:   []string{"http://host/files/Estatuto_e.pdf", "http://host/files/Otro_a.pdf"},
		Status:     model.StatusInReview,
		Timestamp:  time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
	}, loc)

	byKey := make(map[string]DetailField)
	for _, f := range d.Fields {
		byKey[f.Key] = f
	}
	assert.Equal(t, "Persona Jurídica", byKey["person_type"].Value)
	assert.Equal(t, "CUIT/CUIL", byKey["tax_id"].Label)
	assert.Equal(t, "N/A", byKey["email"].Value)
	assert.Equal(t, "Comercial", byKey["category"].Value)
	assert.Equal(t, "01/03/2024 12:30:00", byKey["timestamp"].Value)
	assert.Equal(t, "En Revisión", d.StatusLabel)
	require.Len(t, d.Documents, 2)
	assert.Equal(t, DetailDocument{Label: "Documento 2", URL: "http://host/files/Otro_a.pdf"}, d.Documents[1])
}
