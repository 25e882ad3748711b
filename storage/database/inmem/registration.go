package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/registration"
)

type registrationRepository struct {
	db *registrationTable
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *DB) *registrationRepository {
	return &registrationRepository{db: db.registration}
}

func (repo *registrationRepository) CreateRegistration(_ context.Context, reg registration.Registration) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[reg.ID] = &reg
	return reg, nil
}

func (repo *registrationRepository) QueryRegistrations(_ context.Context, ordering []core.DBOrdering) ([]registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	regs := make([]registration.Registration, 0, len(repo.db.table))
	for _, reg := range repo.db.table {
		regs = append(regs, *reg)
	}
	ascending := len(ordering) > 0 && ordering[0].Field == "created_at" && ordering[0].Ascending
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].ID < regs[j].ID
		}
		if ascending {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].CreatedAt.After(regs[j].CreatedAt)
	})
	return regs, nil
}

func (repo *registrationRepository) GetRegistration(_ context.Context, id string) (registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if reg, ok := repo.db.table[id]; ok {
		return *reg, nil
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (repo *registrationRepository) UpdateRegistrationStatus(
	_ context.Context,
	id string,
	status registration.Status,
	updatedAt time.Time,
) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	reg, ok := repo.db.table[id]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	reg.Status = status
	reg.UpdatedAt = updatedAt
	return *reg, nil
}
