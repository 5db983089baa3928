package repository

// SortField is a sortable column, named as it appears in the API.
type SortField string

const (
	SortTimestamp   SortField = "timestamp"
	SortPersonType  SortField = "person_type"
	SortNationalID  SortField = "national_id"
	SortSurname     SortField = "surname"
	SortEmail       SortField = "email"
	SortCategory    SortField = "category"
	SortSubCategory SortField = "sub_category"
)

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// sortColumns maps API sort fields to columns. Only these are ever interpolated
// into SQL.
var sortColumns = map[SortField]string{
	SortTimestamp:   "created_at",
	SortPersonType:  "person_type",
	SortNationalID:  "national_id",
	SortSurname:     "surname",
	SortEmail:       "email",
	SortCategory:    "category",
	SortSubCategory: "sub_category",
}

// Column returns the column backing f.
func (f SortField) Column() (string, bool) {
	c, ok := sortColumns[f]
	return c, ok
}

// ParseSort validates a field/direction pair. Empty values fall back to the
// default ordering, newest first.
func ParseSort(field, dir string) (SortField, Direction, error) {
	f := SortField(field)
	if field == "" {
		f = SortTimestamp
	}
	if _, ok := sortColumns[f]; !ok {
		return "", "", ErrInvalidSort
	}
	d := Direction(dir)
	if dir == "" {
		d = Desc
	}
	if d != Asc && d != Desc {
		return "", "", ErrInvalidSort
	}
	return f, d, nil
}
