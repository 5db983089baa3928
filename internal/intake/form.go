// Package intake holds the applicant-side pre-registration wizard: draft state,
// section navigation, attachments and the submit sequence.
package intake

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"habilitaciones/internal/model"
	"habilitaciones/internal/notify"
	"habilitaciones/internal/uploader"
)

// Section is one step of the wizard.
type Section string

const (
	SectionPersonal      Section = "personal"
	SectionGeneral       Section = "general"
	SectionDocumentation Section = "documentacion"
)

// Sections lists the steps in navigation order.
var Sections = []Section{SectionPersonal, SectionGeneral, SectionDocumentation}

var (
	ErrFirstSection     = errors.New("already on the first section")
	ErrLastSection      = errors.New("already on the last section")
	ErrNotLastSection   = errors.New("submit is only available from the last section")
	ErrSubmitted        = errors.New("form already submitted")
	ErrSubmitting       = errors.New("form is being submitted")
	ErrUnknownSlot      = errors.New("unknown attachment slot")
	ErrAttachmentAbsent = errors.New("attachment not found")
)

// ValidationError lists what blocks a submit, by JSON field name and slot id.
type ValidationError struct {
	Fields      []string
	Attachments []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Fields) > 0 {
		parts = append(parts, "missing or invalid fields: "+strings.Join(e.Fields, ", "))
	}
	if len(e.Attachments) > 0 {
		parts = append(parts, "missing attachments: "+strings.Join(e.Attachments, ", "))
	}
	return strings.Join(parts, "; ")
}

// Slot is an attachment input of the form.
type Slot struct {
	ID       string  `json:"id"`
	Section  Section `json:"section"`
	Label    string  `json:"label"`
	Multiple bool    `json:"multiple"`
	// RequiredFor lists the person types that must provide the slot; empty
	// means optional, both types means always required.
	RequiredFor []model.PersonType `json:"-"`
}

// Required reports whether pt must provide the slot.
func (s Slot) Required(pt model.PersonType) bool {
	for _, r := range s.RequiredFor {
		if r == pt {
			return true
		}
	}
	return false
}

var both = []model.PersonType{model.PersonIndividual, model.PersonOrganization}

// Slots are the attachment inputs in display order.
var Slots = []Slot{
	{ID: "dni-upload", Section: SectionPersonal, Label: "Adjuntar DNI (Titular / Apoderado)", RequiredFor: []model.PersonType{model.PersonIndividual}},
	{ID: "estatuto-upload", Section: SectionPersonal, Label: "Estatuto (Persona Jurídica)", RequiredFor: []model.PersonType{model.PersonOrganization}},
	{ID: "acta-upload", Section: SectionPersonal, Label: "Acta de designación de autoridades", RequiredFor: []model.PersonType{model.PersonOrganization}},
	{ID: "documento-propiedad-upload", Section: SectionGeneral, Label: "Adjuntar documento de propiedad", RequiredFor: both},
	{ID: "documentos-inscripcion-upload", Section: SectionDocumentation, Label: "Adjuntar Documentos (Constancia de Inscripción en ARCA y ATM)", Multiple: true},
}

// LookupSlot finds a slot by id.
func LookupSlot(id string) (Slot, bool) {
	for _, s := range Slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// Attachment is one file added to a slot.
type Attachment struct {
	ID   string
	Slot string
	Task *uploader.Task
}

// Form is one applicant's draft. All methods are safe for concurrent use.
type Form struct {
	ID string

	mu          sync.Mutex
	fields      Fields
	section     int
	attachments []*Attachment
	submitting  bool
	submitted   *model.Submission
	touched     time.Time
}

// NewForm returns an empty draft on the first section.
func NewForm(now time.Time) *Form {
	return &Form{ID: uuid.NewString(), touched: now}
}

func (f *Form) editable() error {
	if f.submitted != nil {
		return ErrSubmitted
	}
	if f.submitting {
		return ErrSubmitting
	}
	return nil
}

func (f *Form) checkEditable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editable()
}

// SetFields assigns values by JSON field name. Unknown names reject the whole
// update.
func (f *Form) SetFields(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	next := f.fields
	for k, v := range values {
		if err := next.Set(k, v); err != nil {
			return err
		}
	}
	f.fields = next
	return nil
}

// Next moves one section forward without validating the current one.
func (f *Form) Next() (Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return Sections[f.section], err
	}
	if f.section == len(Sections)-1 {
		return Sections[f.section], ErrLastSection
	}
	f.section++
	return Sections[f.section], nil
}

// Back moves one section backward.
func (f *Form) Back() (Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return Sections[f.section], err
	}
	if f.section == 0 {
		return Sections[f.section], ErrFirstSection
	}
	f.section--
	return Sections[f.section], nil
}

// AddAttachment records an upload task under slotID. Repeated adds to a
// single-file slot append alongside.
func (f *Form) AddAttachment(slotID string, task *uploader.Task) (*Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return nil, err
	}
	if _, ok := LookupSlot(slotID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	a := &Attachment{ID: uuid.NewString(), Slot: slotID, Task: task}
	f.attachments = append(f.attachments, a)
	return a, nil
}

// RemoveAttachment drops the attachment from the draft and returns it so the
// caller can clean up the stored object.
func (f *Form) RemoveAttachment(id string) (*Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return nil, err
	}
	for i, a := range f.attachments {
		if a.ID == id {
			f.attachments = append(f.attachments[:i:i], f.attachments[i+1:]...)
			return a, nil
		}
	}
	return nil, ErrAttachmentAbsent
}

// beginSubmit runs the checks that need no waiting and marks the form as
// submitting. It returns the record to write and the attachments to wait for.
func (f *Form) beginSubmit() (model.Submission, []*Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return model.Submission{}, nil, err
	}
	if f.section != len(Sections)-1 {
		return model.Submission{}, nil, ErrNotLastSection
	}

	verr := &ValidationError{
		Fields:      f.fields.Missing(),
		Attachments: f.missingSlots(func(a *Attachment) bool { return true }),
	}
	if len(verr.Fields) > 0 || len(verr.Attachments) > 0 {
		return model.Submission{}, nil, verr
	}

	f.submitting = true
	return f.fields.toSubmission(), append([]*Attachment(nil), f.attachments...), nil
}

// finishSubmit applies the outcome of a submit. A nil stored leaves the form
// editable.
func (f *Form) finishSubmit(stored *model.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if stored != nil {
		f.submitted = stored
	}
}

// missingSlots returns the required slots with no attachment satisfying ok.
// Caller holds f.mu.
func (f *Form) missingSlots(ok func(*Attachment) bool) []string {
	pt := model.PersonType(f.fields.PersonType)
	var missing []string
	for _, s := range Slots {
		if !s.Required(pt) {
			continue
		}
		found := false
		for _, a := range f.attachments {
			if a.Slot == s.ID && ok(a) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, s.ID)
		}
	}
	return missing
}

func (f *Form) touch(now time.Time) {
	f.mu.Lock()
	f.touched = now
	f.mu.Unlock()
}

func (f *Form) lastTouched() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched
}

// AttachmentView is the rendering of one attachment.
type AttachmentView struct {
	ID       string `json:"id"`
	Slot     string `json:"slot"`
	Name     string `json:"name"`
	Progress int    `json:"progress"`
	Done     bool   `json:"done"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// View is the rendering of a draft.
type View struct {
	ID            string               `json:"id"`
	Section       Section              `json:"section"`
	CanSubmit     bool                 `json:"can_submit"`
	Fields        Fields               `json:"fields"`
	MissingFields map[Section][]string `json:"missing_fields"`
	MissingSlots  []string             `json:"missing_attachments"`
	Attachments   []AttachmentView     `json:"attachments"`
	Submitting    bool                 `json:"submitting"`
	Submitted     bool                 `json:"submitted"`
	SubmissionID  string               `json:"submission_id,omitempty"`
	Confirmation  string               `json:"confirmation,omitempty"`
}

// Snapshot renders the draft.
func (f *Form) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		ID:            f.ID,
		Section:       Sections[f.section],
		CanSubmit:     f.section == len(Sections)-1 && f.submitted == nil && !f.submitting,
		Fields:        f.fields,
		MissingFields: make(map[Section][]string, len(Sections)),
		MissingSlots:  f.missingSlots(func(a *Attachment) bool { return true }),
		Attachments:   make([]AttachmentView, 0, len(f.attachments)),
		Submitting:    f.submitting,
		Submitted:     f.submitted != nil,
	}
	for _, s := range Sections {
		if missing := f.fields.Missing(s); len(missing) > 0 {
			v.MissingFields[s] = missing
		}
	}
	for _, a := range f.attachments {
		av := AttachmentView{ID: a.ID, Slot: a.Slot, Name: a.Task.Name, Progress: a.Task.Percent(), Done: a.Task.Finished(), URL: a.Task.URL()}
		if err := a.Task.Err(); err != nil {
			av.Error = "upload failed"
		}
		v.Attachments = append(v.Attachments, av)
	}
	if f.submitted != nil {
		v.SubmissionID = f.submitted.ID
		v.Confirmation = notify.ConfirmationMessage
	}
	return v
}
