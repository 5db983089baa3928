package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"habilitaciones/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	subs := []model.Submission{
		{
			ID:         "a1",
			PersonType: model.PersonIndividual,
			NationalID: "30111222",
			Surname:    "García",
			Category:   model.CategoryService,
			Status:     model.StatusFinished,
			FileURLs:   []string{"http://host/files/DNI_a.jpg", "http://host/files/Propiedad_b.pdf"},
			Timestamp:  time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
		},
		{ID: "a2", Surname: "López", Timestamp: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, subs, time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Fecha de envío", rows[0][0])
	assert.Equal(t, "01/03/2024 15:30:00", rows[1][0])
	assert.Equal(t, "Persona Física", rows[1][1])
	assert.Equal(t, "Servicio", rows[1][9])
	assert.Equal(t, "Finalizado", rows[1][12])
	assert.Equal(t, "http://host/files/DNI_a.jpg\nhttp://host/files/Propiedad_b.pdf", rows[1][14])
	assert.Equal(t, "Sin Estado", rows[2][12])
	assert.Equal(t, "a2", rows[2][15])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
