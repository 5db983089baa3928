package intake

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"habilitaciones/internal/model"
)

var ErrUnknownField = errors.New("unknown field")

// Fields are the applicant-entered values. The "section" tag places each field
// on a form section; "validate" declares the required ones.
type Fields struct {
	PersonType string `json:"person_type" section:"personal" validate:"required,oneof=fisica juridica"`
	NationalID string `json:"national_id" section:"personal" validate:"required_unless=PersonType juridica"`
	TaxID      string `json:"tax_id" section:"personal" validate:"required"`
	Surname    string `json:"surname" section:"personal" validate:"required"`
	GivenName  string `json:"given_name" section:"personal"`
	Domicile   string `json:"domicile" section:"personal" validate:"required"`
	Email      string `json:"email" section:"personal" validate:"required,email"`
	Phone      string `json:"phone" section:"personal" validate:"required"`

	Section         string `json:"section" section:"general" validate:"required"`
	Block           string `json:"block" section:"general" validate:"required"`
	Parcel          string `json:"parcel" section:"general" validate:"required"`
	Address         string `json:"address" section:"general" validate:"required"`
	Premises        string `json:"premises" section:"general" validate:"required"`
	Neighborhood    string `json:"neighborhood" section:"general" validate:"required"`
	CoveredArea     string `json:"covered_area" section:"general"`
	SemiCoveredArea string `json:"semi_covered_area" section:"general"`
	TotalArea       string `json:"total_area" section:"general"`
	Georeference    string `json:"georeference" section:"general"`

	Category          string `json:"category" section:"documentacion" validate:"required,oneof=servicio comercial industrial"`
	SubCategory       string `json:"sub_category" section:"documentacion" validate:"required,oneof=habilitacion anexo traslado cambioTitular cambioRubro"`
	MainActivity      string `json:"main_activity" section:"documentacion" validate:"required"`
	SecondaryActivity string `json:"secondary_activity" section:"documentacion"`
	OtherActivity     string `json:"other_activity" section:"documentacion"`
}

type fieldMeta struct {
	index   int
	name    string
	section Section
}

var (
	validate   = newValidator()
	fieldIndex = buildFieldIndex()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

func buildFieldIndex() map[string]fieldMeta {
	t := reflect.TypeOf(Fields{})
	idx := make(map[string]fieldMeta, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		idx[name] = fieldMeta{index: i, name: f.Name, section: Section(f.Tag.Get("section"))}
	}
	return idx
}

// Set assigns one field by its JSON name.
func (f *Fields) Set(name, value string) error {
	meta, ok := fieldIndex[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	reflect.ValueOf(f).Elem().Field(meta.index).SetString(strings.TrimSpace(value))
	return nil
}

// Missing validates the fields of the given sections, or every field when
// none are given, and returns the JSON names that failed, sorted.
func (f *Fields) Missing(sections ...Section) []string {
	var err error
	if len(sections) == 0 {
		err = validate.Struct(f)
	} else {
		var names []string
		for _, meta := range fieldIndex {
			for _, s := range sections {
				if meta.section == s {
					names = append(names, meta.name)
				}
			}
		}
		err = validate.StructPartial(f, names...)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	sort.Strings(out)
	return out
}

// toSubmission copies the values onto a new record, applying the national ID
// placeholder for organizations.
func (f *Fields) toSubmission() model.Submission {
	nationalID := f.NationalID
	if model.PersonType(f.PersonType) == model.PersonOrganization && nationalID == "" {
		nationalID = model.NationalIDPlaceholder
	}
	return model.Submission{
		PersonType:        model.PersonType(f.PersonType),
		NationalID:        nationalID,
		TaxID:             f.TaxID,
		Surname:           f.Surname,
		GivenName:         f.GivenName,
		Domicile:          f.Domicile,
		Email:             f.Email,
		Phone:             f.Phone,
		Section:           f.Section,
		Block:             f.Block,
		Parcel:            f.Parcel,
		Address:           f.Address,
		Premises:          f.Premises,
		Neighborhood:      f.Neighborhood,
		CoveredArea:       f.CoveredArea,
		SemiCoveredArea:   f.SemiCoveredArea,
		TotalArea:         f.TotalArea,
		Georeference:      f.Georeference,
		Category:          model.Category(f.Category),
		SubCategory:       model.SubCategory(f.SubCategory),
		MainActivity:      f.MainActivity,
		SecondaryActivity: f.SecondaryActivity,
		OtherActivity:     f.OtherActivity,
	}
}
