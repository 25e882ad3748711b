package registration

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/harmony/core"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Decided reports whether s is a status an admin can set.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	Instruments = []Option{
		{Value: "piano", Label: "Piano"},
		{Value: "guitar", Label: "Guitar"},
		{Value: "violin", Label: "Violin"},
		{Value: "drums", Label: "Drums"},
		{Value: "voice", Label: "Voice Training"},
		{Value: "saxophone", Label: "Saxophone"},
		{Value: "flute", Label: "Flute"},
		{Value: "trumpet", Label: "Trumpet"},
		{Value: "bass", Label: "Bass Guitar"},
		{Value: "theory", Label: "Music Theory"},
	}

	ExperienceLevels = []Option{
		{Value: "beginner", Label: "Complete Beginner"},
		{Value: "some-experience", Label: "Some Experience"},
		{Value: "intermediate", Label: "Intermediate"},
		{Value: "advanced", Label: "Advanced"},
	}
)

func label(opts []Option, value string) string {
	for _, opt := range opts {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

type Registration struct {
	ID                string      `json:"id" db:"id"`
	StudentName       string      `json:"student_name" db:"student_name"`
	Age               int         `json:"age" db:"age"`
	Email             string      `json:"email" db:"email"`
	Phone             string      `json:"phone" db:"phone"`
	ParentName        null.String `json:"parent_name" db:"parent_name"`
	ParentPhone       null.String `json:"parent_phone" db:"parent_phone"`
	Instrument        string      `json:"instrument" db:"instrument"`
	Experience        string      `json:"experience" db:"experience"`
	Goals             null.String `json:"goals" db:"goals"`
	PreferredSchedule null.String `json:"preferred_schedule" db:"preferred_schedule"`
	Status            Status      `json:"status" db:"status"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (r Registration) InstrumentLabel() string { return label(Instruments, r.Instrument) }
func (r Registration) ExperienceLabel() string { return label(ExperienceLevels, r.Experience) }
func (r Registration) IsPending() bool         { return r.Status == StatusPending }

// NewRegistration contains the information submitted by the public registration form.
// id, created_at & status are assigned by the store.
type NewRegistration struct {
	StudentName       string `json:"student_name" form:"student_name" validate:"required,max=255"`
	Age               int    `json:"age" form:"age" validate:"required,min=3,max=100"`
	Email             string `json:"email" form:"email" validate:"required,email"`
	Phone             string `json:"phone" form:"phone" validate:"required,phone"`
	ParentName        string `json:"parent_name,omitempty" form:"parent_name" validate:"omitempty,max=255"`
	ParentPhone       string `json:"parent_phone,omitempty" form:"parent_phone" validate:"omitempty,phone"`
	Instrument        string `json:"instrument" form:"instrument" validate:"required,instrument"`
	Experience        string `json:"experience" form:"experience" validate:"required,experience"`
	Goals             string `json:"goals,omitempty" form:"goals"`
	PreferredSchedule string `json:"preferred_schedule,omitempty" form:"preferred_schedule"`
}

func (nr *NewRegistration) Clean() {
	nr.StudentName = core.CleanString(nr.StudentName)
	nr.Email = core.CleanString(nr.Email, true /* lower */)
	nr.Phone = core.CleanString(nr.Phone)
	nr.ParentName = core.CleanString(nr.ParentName)
	nr.ParentPhone = core.CleanString(nr.ParentPhone)
	nr.Instrument = core.CleanString(nr.Instrument, true /* lower */)
	nr.Experience = core.CleanString(nr.Experience, true /* lower */)
	nr.Goals = core.CleanString(nr.Goals)
	nr.PreferredSchedule = core.CleanString(nr.PreferredSchedule)
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.Clean()
	return validate.Struct(nr)
}

// UpdateStatus is the payload of the admin status update.
type UpdateStatus struct {
	Status Status `json:"status" form:"status" validate:"required,oneof=approved rejected"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = Status(core.CleanString(string(us.Status), true /* lower */))
	return validate.Struct(us)
}

// Filter returns the registrations whose student name or instrument contains `search`, case-insensitively.
// An empty search returns `regs` as is. `regs` is never modified.
func Filter(regs []Registration, search string) []Registration {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return regs
	}
	res := make([]Registration, 0, len(regs))
	for _, reg := range regs {
		if strings.Contains(strings.ToLower(reg.StudentName), search) ||
			strings.Contains(strings.ToLower(reg.Instrument), search) ||
			strings.Contains(strings.ToLower(reg.InstrumentLabel()), search) {
			res = append(res, reg)
		}
	}
	return res
}

// Pending returns the registrations awaiting a decision.
func Pending(regs []Registration) []Registration {
	res := make([]Registration, 0, len(regs))
	for _, reg := range regs {
		if reg.IsPending() {
			res = append(res, reg)
		}
	}
	return res
}

// Replace returns a copy of `regs` where the registration matching `id` went through `patch`.
// Order & all other registrations are preserved. ok is false if no registration matches.
func Replace(regs []Registration, id string, patch func(Registration) Registration) (res []Registration, ok bool) {
	res = make([]Registration, len(regs))
	copy(res, regs)
	for i := range res {
		if res[i].ID == id {
			res[i] = patch(res[i])
			return res, true
		}
	}
	return res, false
}

// WithStatus is a patch setting the status only.
func WithStatus(status Status) func(Registration) Registration {
	return func(reg Registration) Registration {
		reg.Status = status
		return reg
	}
}

type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func Count(regs []Registration) Stats {
	st := Stats{Total: len(regs)}
	for _, reg := range regs {
		switch reg.Status {
		case StatusPending:
			st.Pending++
		case StatusApproved:
			st.Approved++
		case StatusRejected:
			st.Rejected++
		}
	}
	return st
}
