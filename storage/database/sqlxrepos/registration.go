package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/registration"
)

const registrationColumns = `id, student_name, age, email, phone, parent_name, parent_phone,
	instrument, experience, goals, preferred_schedule, status, created_at, updated_at`

var registrationOrderings = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"student_name": true,
	"status":       true,
}

type registrationRepository struct {
	db *sqlx.DB
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *sqlx.DB) *registrationRepository {
	return &registrationRepository{db: db}
}

func (repo registrationRepository) CreateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	q := `INSERT INTO registrations (` + registrationColumns + `)
		VALUES (:id, :student_name, :age, :email, :phone, :parent_name, :parent_phone,
			:instrument, :experience, :goals, :preferred_schedule, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, reg); err != nil {
		return registration.Registration{}, errors.Wrap(err, "inserting registration")
	}
	return reg, nil
}

func (repo registrationRepository) QueryRegistrations(ctx context.Context, ordering []core.DBOrdering) ([]registration.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations ORDER BY ` +
		core.OrderByClause(ordering, registrationOrderings, core.NewestFirst)

	regs := make([]registration.Registration, 0)
	if err := repo.db.SelectContext(ctx, &regs, q); err != nil {
		return nil, errors.Wrap(err, "selecting registrations")
	}
	return regs, nil
}

func (repo registrationRepository) GetRegistration(ctx context.Context, id string) (registration.Registration, error) {
	if !isUUID(id) {
		return registration.Registration{}, registration.ErrNotFound
	}
	var reg registration.Registration
	err := repo.db.GetContext(ctx, &reg, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return registration.Registration{}, registration.ErrNotFound
	}
	return reg, errors.Wrap(err, "selecting registration")
}

func (repo registrationRepository) UpdateRegistrationStatus(
	ctx context.Context,
	id string,
	status registration.Status,
	updatedAt time.Time,
) (registration.Registration, error) {
	if !isUUID(id) {
		return registration.Registration{}, registration.ErrNotFound
	}
	var reg registration.Registration
	err := repo.db.GetContext(
		ctx, &reg,
		`UPDATE registrations SET status = $1, updated_at = $2 WHERE id = $3 RETURNING `+registrationColumns,
		status, updatedAt, id,
	)
	if err == sql.ErrNoRows {
		return registration.Registration{}, registration.ErrNotFound
	}
	return reg, errors.Wrap(err, "updating registration status")
}
