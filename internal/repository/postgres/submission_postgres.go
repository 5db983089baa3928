package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
)

// SubmissionPostgres is a PostgreSQL implementation of repository.SubmissionRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type SubmissionPostgres struct {
	db *sql.DB
}

// NewSubmissionPostgres creates a new SubmissionPostgres repository.
func NewSubmissionPostgres(db *sql.DB) *SubmissionPostgres {
	return &SubmissionPostgres{db: db}
}

var _ repository.SubmissionRepository = (*SubmissionPostgres)(nil)

const submissionColumns = `id, person_type, national_id, tax_id, surname, given_name, domicile, email, phone,
		section, block, parcel, address, premises, neighborhood, covered_area, semi_covered_area, total_area, georeference,
		category, sub_category, main_activity, secondary_activity, other_activity,
		file_urls, status, notes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var (
		s        model.Submission
		fileURLs []byte
		status   sql.NullString
	)
	if err := row.Scan(
		&s.ID, &s.PersonType, &s.NationalID, &s.TaxID, &s.Surname, &s.GivenName, &s.Domicile, &s.Email, &s.Phone,
		&s.Section, &s.Block, &s.Parcel, &s.Address, &s.Premises, &s.Neighborhood,
		&s.CoveredArea, &s.SemiCoveredArea, &s.TotalArea, &s.Georeference,
		&s.Category, &s.SubCategory, &s.MainActivity, &s.SecondaryActivity, &s.OtherActivity,
		&fileURLs, &status, &s.Notes, &s.Timestamp,
	); err != nil {
		return nil, err
	}
	s.FileURLs = []string{}
	if len(fileURLs) > 0 {
		if err := json.Unmarshal(fileURLs, &s.FileURLs); err != nil {
			return nil, fmt.Errorf("decode file_urls: %w", err)
		}
	}
	if status.Valid {
		s.Status = model.Status(status.String)
	}
	return &s, nil
}

// nullableStatus stores "no status" as NULL.
func nullableStatus(st model.Status) any {
	if st == model.StatusNone {
		return nil
	}
	return string(st)
}

// Create inserts a new submission row and returns the stored record.
func (r *SubmissionPostgres) Create(ctx context.Context, s *model.Submission) (*model.Submission, error) {
	urls := s.FileURLs
	if urls == nil {
		urls = []string{}
	}
	fileURLs, err := json.Marshal(urls)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28)
		RETURNING ` + submissionColumns
	row := r.db.QueryRowContext(ctx, q,
		s.ID, s.PersonType, s.NationalID, s.TaxID, s.Surname, s.GivenName, s.Domicile, s.Email, s.Phone,
		s.Section, s.Block, s.Parcel, s.Address, s.Premises, s.Neighborhood,
		s.CoveredArea, s.SemiCoveredArea, s.TotalArea, s.Georeference,
		s.Category, s.SubCategory, s.MainActivity, s.SecondaryActivity, s.OtherActivity,
		fileURLs, nullableStatus(s.Status), s.Notes, s.Timestamp,
	)
	return scanSubmission(row)
}

// FindByID fetches a single submission by its ID.
func (r *SubmissionPostgres) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return scanSubmission(r.db.QueryRowContext(ctx, q, id))
}

// List returns one keyset page ordered by the requested column, ties broken by id.
func (r *SubmissionPostgres) List(ctx context.Context, lq repository.ListQuery) (*repository.Page, error) {
	q, args, err := buildListQuery(lq)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Submission, 0, lq.Limit)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &repository.Page{Items: items}
	if n := len(items); n > 0 {
		page.Cursor = repository.EncodeCursor(repository.Cursor{
			Sort:      lq.Sort,
			Direction: lq.Direction,
			Value:     sortValue(items[n-1], lq.Sort),
			ID:        items[n-1].ID,
		})
	}
	return page, nil
}

func buildListQuery(lq repository.ListQuery) (string, []any, error) {
	col, ok := lq.Sort.Column()
	if !ok || (lq.Direction != repository.Asc && lq.Direction != repository.Desc) {
		return "", nil, repository.ErrInvalidSort
	}
	if lq.Limit <= 0 {
		return "", nil, fmt.Errorf("invalid limit %d", lq.Limit)
	}

	var (
		where []string
		args  []any
	)
	if lq.Status != model.StatusNone {
		args = append(args, string(lq.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if lq.Cursor != "" {
		c, err := repository.DecodeCursor(lq.Cursor, lq.Sort, lq.Direction)
		if err != nil {
			return "", nil, err
		}
		op := ">"
		if lq.Direction == repository.Desc {
			op = "<"
		}
		cast := ""
		if lq.Sort == repository.SortTimestamp {
			cast = "::timestamptz"
		}
		args = append(args, c.Value, c.ID)
		where = append(where, fmt.Sprintf("(%s, id) %s ($%d%s, $%d::uuid)", col, op, len(args)-1, cast, len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(submissionColumns)
	b.WriteString(" FROM submissions")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	dir := strings.ToUpper(string(lq.Direction))
	args = append(args, lq.Limit)
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s LIMIT $%d", col, dir, dir, len(args))
	return b.String(), args, nil
}

func sortValue(s model.Submission, f repository.SortField) string {
	switch f {
	case repository.SortPersonType:
		return string(s.PersonType)
	case repository.SortNationalID:
		return s.NationalID
	case repository.SortSurname:
		return s.Surname
	case repository.SortEmail:
		return s.Email
	case repository.SortCategory:
		return string(s.Category)
	case repository.SortSubCategory:
		return string(s.SubCategory)
	default:
		return s.Timestamp.UTC().Format(time.RFC3339Nano)
	}
}

// Count returns the number of rows in the table.
func (r *SubmissionPostgres) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// UpdateStatus writes the status column of one row.
func (r *SubmissionPostgres) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	const q = `UPDATE submissions SET status = $2 WHERE id = $1`
	return r.execOne(ctx, q, id, nullableStatus(status))
}

// UpdateReview writes the notes and status columns of one row.
func (r *SubmissionPostgres) UpdateReview(ctx context.Context, id string, notes string, status model.Status) error {
	const q = `UPDATE submissions SET notes = $2, status = $3 WHERE id = $1`
	return r.execOne(ctx, q, id, notes, nullableStatus(status))
}

// Delete removes a submission by ID. It returns repository.ErrNotFound if no row matched.
func (r *SubmissionPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM submissions WHERE id = $1`
	return r.execOne(ctx, q, id)
}

func (r *SubmissionPostgres) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
