// Package export renders submissions as an XLSX workbook for offline review.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"habilitaciones/internal/model"
)

const sheetName = "Solicitudes"

// ContentType is the MIME type of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []any{
	"Fecha de envío", "Tipo de Persona", "DNI", "CUIT/CUIL", "Apellido y Nombre", "Email", "Teléfono",
	"Dirección", "Barrio", "Categoría", "Tipo de Trámite", "Actividad Principal", "Estado", "Notas", "Documentos", "ID",
}

// WriteXLSX writes one header row and one row per submission to w. Times are
// rendered in loc.
func WriteXLSX(w io.Writer, subs []model.Submission, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, s := range subs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row(s, loc)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func row(s model.Submission, loc *time.Location) []any {
	return []any{
		s.Timestamp.In(loc).Format("02/01/2006 15:04:05"),
		s.PersonType.Label(),
		s.NationalID,
		s.TaxID,
		s.Surname,
		s.Email,
		s.Phone,
		s.Address,
		s.Neighborhood,
		s.Category.Label(),
		s.SubCategory.Label(),
		s.MainActivity,
		s.Status.Label(),
		s.Notes,
		strings.Join(s.FileURLs, "\n"),
		s.ID,
	}
}
