package admin

import (
	"fmt"
	"time"

	"habilitaciones/internal/model"
)

const emptyValue = "N/A"

// TimestampLayout renders submission times for reviewers.
const TimestampLayout = "02/01/2006 15:04:05"

// DetailField is one labelled value.
type DetailField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// DetailDocument is one attachment link.
type DetailDocument struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Detail is the read-only expansion of one submission.
type Detail struct {
	ID          string           `json:"id"`
	Fields      []DetailField    `json:"fields"`
	Documents   []DetailDocument `json:"documents"`
	Status      model.Status     `json:"status,omitempty"`
	StatusLabel string           `json:"status_label"`
	Notes       string           `json:"notes"`
}

// NewDetail renders s with times in loc. Empty values show as "N/A".
func NewDetail(s model.Submission, loc *time.Location) Detail {
	if loc == nil {
		loc = time.UTC
	}
	values := []struct{ key, label, value string }{
		{"person_type", "Tipo de Persona", s.PersonType.Label()},
		{"national_id", "DNI", s.NationalID},
		{"tax_id", "CUIT/CUIL", s.TaxID},
		{"surname", "Apellido y Nombre", s.Surname},
		{"given_name", "Nombre", s.GivenName},
		{"domicile", "Domicilio", s.Domicile},
		{"email", "Email", s.Email},
		{"phone", "Teléfono", s.Phone},
		{"section", "Sección", s.Section},
		{"block", "Manzana", s.Block},
		{"parcel", "Parcela", s.Parcel},
		{"address", "Dirección", s.Address},
		{"premises", "Local/Oficina", s.Premises},
		{"neighborhood", "Barrio", s.Neighborhood},
		{"covered_area", "Superficie Cubierta", s.CoveredArea},
		{"semi_covered_area", "Superficie Semicubierta", s.SemiCoveredArea},
		{"total_area", "Superficie Total", s.TotalArea},
		{"georeference", "Georreferenciación", s.Georeference},
		{"category", "Categoría", s.Category.Label()},
		{"sub_category", "Tipo de Trámite", s.SubCategory.Label()},
		{"main_activity", "Actividad Principal", s.MainActivity},
		{"secondary_activity", "Actividad Secundaria", s.SecondaryActivity},
		{"other_activity", "Otra Actividad", s.OtherActivity},
		{"timestamp", "Fecha de envío", formatTime(s.Timestamp, loc)},
	}

	d := Detail{
		ID:          s.ID,
		Fields:      make([]DetailField, 0, len(values)),
		Documents:   make([]DetailDocument, 0, len(s.FileURLs)),
		Status:      s.Status,
		StatusLabel: s.Status.Label(),
		Notes:       s.Notes,
	}
	for _, v := range values {
		val := v.value
		if val == "" {
			val = emptyValue
		}
		d.Fields = append(d.Fields, DetailField{Key: v.key, Label: v.label, Value: val})
	}
	for i, u := range s.FileURLs {
		d.Documents = append(d.Documents, DetailDocument{Label: fmt.Sprintf("Documento %d", i+1), URL: u})
	}
	return d
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(TimestampLayout)
}
