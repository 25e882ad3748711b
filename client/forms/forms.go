// Package forms holds the public registration & contact forms.
package forms

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/client/notify"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
)

var (
	// errors
	ErrSubmitting   = errors.New("form is being submitted")
	ErrUnknownField = errors.New("unknown field")
)

// Submitter inserts the submitted records in the record store.
type Submitter interface {
	SubmitRegistration(ctx context.Context, nr registration.NewRegistration) error
	SubmitMessage(ctx context.Context, nm message.NewMessage) error
}

// Field describes an input of a form.
type Field struct {
	Name     string
	Label    string
	Required bool
	Options  []registration.Option // select inputs only
}

type Deps struct {
	Submitter  Submitter
	Validate   *validator.Validate
	Translator ut.Translator
	Notifier   notify.Notifier
	Logger     core.Logger
}

// state is shared by both forms: field errors & the in-flight flag.
type state struct {
	Deps
	mu         sync.Mutex
	errors     map[string]string
	submitting bool
}

func (s *state) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	return errs
}

func (s *state) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// submit runs the submission flow. validate & insert are called without the lock held;
// reset is called with it held. Field errors, from either side, are kept on the form.
func (s *state) submit(what string, validate func() error, insert func() error, reset func()) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitting
	}
	s.submitting = true
	s.mu.Unlock()

	if err := validate(); err != nil {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
		return s.rejected(what, core.TranslateErrors(err, s.Translator))
	}

	s.mu.Lock()
	s.errors = nil
	s.mu.Unlock()

	err := insert()

	s.mu.Lock()
	s.submitting = false
	if err == nil {
		reset()
	}
	s.mu.Unlock()

	if err != nil {
		if core.IsValidationError(err) {
			return s.rejected(what, err)
		}
		s.Logger.Error(fmt.Sprintf("submitting %s: %v", what, err), err)
	}
	return err
}

func (s *state) rejected(what string, err error) error {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		s.mu.Lock()
		s.errors = vErr.FieldMap()
		s.mu.Unlock()
	}
	s.Notifier.Notify(notify.LevelError, "Please check the "+what+" form", "")
	return err
}

// RegistrationForm is the public lesson registration form.
type RegistrationForm struct {
	state
	data registration.NewRegistration
}

var RegistrationFields = []Field{
	{Name: "student_name", Label: "Student name", Required: true},
	{Name: "age", Label: "Age", Required: true},
	{Name: "email", Label: "Email", Required: true},
	{Name: "phone", Label: "Phone", Required: true},
	{Name: "parent_name", Label: "Parent / guardian name"},
	{Name: "parent_phone", Label: "Parent / guardian phone"},
	{Name: "instrument", Label: "Instrument", Required: true, Options: registration.Instruments},
	{Name: "experience", Label: "Experience", Required: true, Options: registration.ExperienceLevels},
	{Name: "goals", Label: "Goals"},
	{Name: "preferred_schedule", Label: "Preferred schedule"},
}

func NewRegistrationForm(deps Deps) *RegistrationForm {
	return &RegistrationForm{state: state{Deps: deps}}
}

// Set updates a field by its name (see RegistrationFields).
func (f *RegistrationForm) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case "student_name":
		f.data.StudentName = value
	case "age":
		value = strings.TrimSpace(value)
		if value == "" {
			f.data.Age = 0
			break
		}
		age, err := strconv.Atoi(value)
		if err != nil {
			return core.NewFieldError("age", "must be a number")
		}
		f.data.Age = age
	case "email":
		f.data.Email = value
	case "phone":
		f.data.Phone = value
	case "parent_name":
		f.data.ParentName = value
	case "parent_phone":
		f.data.ParentPhone = value
	case "instrument":
		f.data.Instrument = value
	case "experience":
		f.data.Experience = value
	case "goals":
		f.data.Goals = value
	case "preferred_schedule":
		f.data.PreferredSchedule = value
	default:
		return errors.Wrap(ErrUnknownField, field)
	}
	delete(f.errors, field)
	return nil
}

// Values returns a copy of the current input.
func (f *RegistrationForm) Values() registration.NewRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Submit validates the input, then inserts it. Invalid input is never sent.
// The form is reset once the registration is stored.
func (f *RegistrationForm) Submit(ctx context.Context) error {
	nr := f.Values()
	err := f.submit("registration",
		func() error { return nr.Validate(f.Validate) },
		func() error { return f.Submitter.SubmitRegistration(ctx, nr) },
		func() { f.data = registration.NewRegistration{} },
	)
	switch {
	case err == nil:
		f.Notifier.Notify(notify.LevelSuccess, "Registration Submitted!",
			"Thank you for registering! We'll contact you within 24 hours to schedule your first lesson.")
	case err != ErrSubmitting && !core.IsValidationError(err):
		f.Notifier.Notify(notify.LevelError, "Registration Failed", "There was an error submitting your registration. Please try again.")
	}
	return err
}

// ContactForm is the public contact form.
type ContactForm struct {
	state
	data message.NewMessage
}

var ContactFields = []Field{
	{Name: "name", Label: "Name", Required: true},
	{Name: "email", Label: "Email", Required: true},
	{Name: "subject", Label: "Subject", Required: true},
	{Name: "message", Label: "Message", Required: true},
}

func NewContactForm(deps Deps) *ContactForm {
	return &ContactForm{state: state{Deps: deps}}
}

// Set updates a field by its name (see ContactFields).
func (f *ContactForm) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case "name":
		f.data.Name = value
	case "email":
		f.data.Email = value
	case "subject":
		f.data.Subject = value
	case "message":
		f.data.Message = value
	default:
		return errors.Wrap(ErrUnknownField, field)
	}
	delete(f.errors, field)
	return nil
}

func (f *ContactForm) Values() message.NewMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Submit validates the input, then inserts it. Invalid input is never sent.
func (f *ContactForm) Submit(ctx context.Context) error {
	nm := f.Values()
	err := f.submit("contact",
		func() error { return nm.Validate(f.Validate) },
		func() error { return f.Submitter.SubmitMessage(ctx, nm) },
		func() { f.data = message.NewMessage{} },
	)
	switch {
	case err == nil:
		f.Notifier.Notify(notify.LevelSuccess, "Message Sent!", "We'll get back to you as soon as possible.")
	case err != ErrSubmitting && !core.IsValidationError(err):
		f.Notifier.Notify(notify.LevelError, "Message Not Sent", "There was an error sending your message. Please try again.")
	}
	return err
}
