package model

import "errors"

// Status is the review state of a submission. Any state may follow any other;
// the empty value means the submission was never reviewed.
type Status string

const (
	StatusNone     Status = ""
	StatusPending  Status = "pendiente"
	StatusInReview Status = "en_revision"
	StatusFinished Status = "finalizado"
)

// StatusFilterAll disables the status filter on listings.
const StatusFilterAll = "all"

var ErrInvalidStatus = errors.New("invalid status")

// Statuses lists the assignable states in display order.
var Statuses = []Status{StatusPending, StatusInReview, StatusFinished}

// ParseStatus accepts one of the assignable states.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return StatusNone, ErrInvalidStatus
}

// ParseStatusFilter accepts "all" (or empty) and the assignable states.
// It returns StatusNone for "all".
func ParseStatusFilter(s string) (Status, error) {
	if s == "" || s == StatusFilterAll {
		return StatusNone, nil
	}
	return ParseStatus(s)
}

// Label is the Spanish badge text shown to reviewers.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pendiente"
	case StatusInReview:
		return "En Revisión"
	case StatusFinished:
		return "Finalizado"
	default:
		return "Sin Estado"
	}
}
