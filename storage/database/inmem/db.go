package inmemdb

import (
	"sync"

	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
	"github.com/trezcool/harmony/core/user"
)

type (
	// DB keeps every table in memory. Used by tests & the `-inmem` dev mode.
	DB struct {
		user         *userTable
		registration *registrationTable
		message      *messageTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	registrationTable struct {
		sync.RWMutex
		table map[string]*registration.Registration
	}

	messageTable struct {
		sync.RWMutex
		table map[string]*message.Message
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		registration: &registrationTable{table: make(map[string]*registration.Registration)},
		message:      &messageTable{table: make(map[string]*message.Message)},
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.registration.Lock()
	db.registration.table = make(map[string]*registration.Registration)
	db.registration.Unlock()

	db.message.Lock()
	db.message.table = make(map[string]*message.Message)
	db.message.Unlock()
}
