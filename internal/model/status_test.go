package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "pendiente", want: StatusPending},
		{in: "en_revision", want: StatusInReview},
		{in: "finalizado", want: StatusFinished},
		{in: "", wantErr: true},
		{in: "all", wantErr: true},
		{in: "FINALIZADO", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStatus)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatusFilter(t *testing.T) {
	st, err := ParseStatusFilter("all")
	assert.NoError(t, err)
	assert.Equal(t, StatusNone, st)

	st, err = ParseStatusFilter("")
	assert.NoError(t, err)
	assert.Equal(t, StatusNone, st)

	st, err = ParseStatusFilter("en_revision")
	assert.NoError(t, err)
	assert.Equal(t, StatusInReview, st)

	_, err = ParseStatusFilter("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Pendiente", StatusPending.Label())
	assert.Equal(t, "En Revisión", StatusInReview.Label())
	assert.Equal(t, "Finalizado", StatusFinished.Label())
	assert.Equal(t, "Sin Estado", StatusNone.Label())
}

func TestPersonTypeValid(t *testing.T) {
	assert.True(t, PersonIndividual.Valid())
	assert.True(t, PersonOrganization.Valid())
	assert.False(t, PersonType("otro").Valid())
}

func TestEnumLabels(t *testing.T) {
	assert.Equal(t, "Persona Jurídica", PersonOrganization.Label())
	assert.Equal(t, "Comercial", CategoryCommercial.Label())
	assert.Equal(t, "Cambio de titular", SubCategoryOwnerChange.Label())
	assert.Equal(t, "otro", SubCategory("otro").Label())
	assert.True(t, PersonIndividual.Valid())
	assert.False(t, PersonType("").Valid())
}
