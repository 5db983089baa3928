package model

import "time"

// Submission is one applicant's commercial pre-registration record.
// Column mapping lives in repository/postgres; the JSON tags are the API shape.
type Submission struct {
	ID         string     `json:"id"`
	PersonType PersonType `json:"person_type"`
	NationalID string     `json:"national_id"`
	TaxID      string     `json:"tax_id"`
	Surname    string     `json:"surname"`
	GivenName  string     `json:"given_name"`
	Domicile   string     `json:"domicile"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`

	Section         string `json:"section"`
	Block           string `json:"block"`
	Parcel          string `json:"parcel"`
	Address         string `json:"address"`
	Premises        string `json:"premises"`
	Neighborhood    string `json:"neighborhood"`
	CoveredArea     string `json:"covered_area"`
	SemiCoveredArea string `json:"semi_covered_area"`
	TotalArea       string `json:"total_area"`
	Georeference    string `json:"georeference"`

	Category          Category    `json:"category"`
	SubCategory       SubCategory `json:"sub_category"`
	MainActivity      string      `json:"main_activity"`
	SecondaryActivity string      `json:"secondary_activity"`
	OtherActivity     string      `json:"other_activity"`

	FileURLs  []string  `json:"file_urls"`
	Status    Status    `json:"status,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NationalIDPlaceholder is stored when an organization leaves the national ID blank.
const NationalIDPlaceholder = "N/A"

// PersonType distinguishes individuals from organizations.
type PersonType string

const (
	PersonIndividual   PersonType = "fisica"
	PersonOrganization PersonType = "juridica"
)

// Valid reports whether p is one of the known person types.
func (p PersonType) Valid() bool {
	return p == PersonIndividual || p == PersonOrganization
}

// Category is the activity classification chosen on the last form section.
type Category string

const (
	CategoryService    Category = "servicio"
	CategoryCommercial Category = "comercial"
	CategoryIndustrial Category = "industrial"
)

// SubCategory is the kind of procedure ("tipo de trámite") being requested.
type SubCategory string

const (
	SubCategoryLicense      SubCategory = "habilitacion"
	SubCategoryAnnex        SubCategory = "anexo"
	SubCategoryRelocation   SubCategory = "traslado"
	SubCategoryOwnerChange  SubCategory = "cambioTitular"
	SubCategoryBusinessLine SubCategory = "cambioRubro"
)

// Label is the Spanish display text; unknown values render as-is.
func (p PersonType) Label() string {
	switch p {
	case PersonIndividual:
		return "Persona Física"
	case PersonOrganization:
		return "Persona Jurídica"
	}
	return string(p)
}

func (c Category) Label() string {
	switch c {
	case CategoryService:
		return "Servicio"
	case CategoryCommercial:
		return "Comercial"
	case CategoryIndustrial:
		return "Industrial"
	}
	return string(c)
}

func (c SubCategory) Label() string {
	switch c {
	case SubCategoryLicense:
		return "Habilitación"
	case SubCategoryAnnex:
		return "Anexo"
	case SubCategoryRelocation:
		return "Traslado"
	case SubCategoryOwnerChange:
		return "Cambio de titular"
	case SubCategoryBusinessLine:
		return "Cambio de rubro"
	}
	return string(c)
}
