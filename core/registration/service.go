package registration

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/harmony/core"
)

var (
	// errors
	ErrNotFound      = errors.New("registration not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type (
	Repository interface {
		CreateRegistration(ctx context.Context, reg Registration) (Registration, error)
		// QueryRegistrations returns all registrations, newest first unless ordering says otherwise.
		QueryRegistrations(ctx context.Context, ordering []core.DBOrdering) ([]Registration, error)
		GetRegistration(ctx context.Context, id string) (Registration, error)
		// UpdateRegistrationStatus only touches the row matching id.
		UpdateRegistrationStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Registration, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nr NewRegistration) (Registration, error)
		Query(ctx context.Context, search string) ([]Registration, error)
		Get(ctx context.Context, id string) (Registration, error)
		UpdateStatus(ctx context.Context, id string, status Status) (Registration, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		nowFunc func() time.Time
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		nowFunc: time.Now,
	}
}

// Create stores a new pending registration & emails the student and the staff.
// nr must have been validated.
func (svc *Service) Create(ctx context.Context, nr NewRegistration) (Registration, error) {
	now := svc.nowFunc().UTC()
	reg := Registration{
		ID:                uuid.New().String(),
		StudentName:       nr.StudentName,
		Age:               nr.Age,
		Email:             nr.Email,
		Phone:             nr.Phone,
		ParentName:        nullString(nr.ParentName),
		ParentPhone:       nullString(nr.ParentPhone),
		Instrument:        nr.Instrument,
		Experience:        nr.Experience,
		Goals:             nullString(nr.Goals),
		PreferredSchedule: nullString(nr.PreferredSchedule),
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	reg, err := svc.repo.CreateRegistration(ctx, reg)
	if err != nil {
		return Registration{}, errors.Wrap(err, "creating registration")
	}
	svc.sendNotifications(reg)
	return reg, nil
}

// Query returns all registrations, newest first, matching search (see Filter).
func (svc *Service) Query(ctx context.Context, search string) ([]Registration, error) {
	regs, err := svc.repo.QueryRegistrations(ctx, core.NewestFirst)
	if err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	return Filter(regs, search), nil
}

func (svc *Service) Get(ctx context.Context, id string) (Registration, error) {
	return svc.repo.GetRegistration(ctx, id)
}

// UpdateStatus sets the status of the registration matching id and refreshes its updated_at.
// Setting the current status again is a no-op.
func (svc *Service) UpdateStatus(ctx context.Context, id string, status Status) (Registration, error) {
	if !status.Decided() {
		return Registration{}, ErrInvalidStatus
	}
	reg, err := svc.repo.GetRegistration(ctx, id)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status == status {
		return reg, nil
	}
	reg, err = svc.repo.UpdateRegistrationStatus(ctx, id, status, svc.nowFunc().UTC())
	if err != nil {
		return Registration{}, errors.Wrap(err, "updating registration status")
	}
	return reg, nil
}

func (svc *Service) sendNotifications(reg Registration) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: reg.StudentName, Address: reg.Email}},
			Subject:      "Registration received",
			TemplateName: "registration_received",
			TemplateData: reg,
		},
		&core.EmailMessage{
			To:           []mail.Address{svc.conf.StaffEmail},
			ReplyTo:      &mail.Address{Name: reg.StudentName, Address: reg.Email},
			Subject:      fmt.Sprintf("New registration: %s (%s)", reg.StudentName, reg.InstrumentLabel()),
			TemplateName: "new_registration",
			TemplateData: reg,
		},
	)
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
