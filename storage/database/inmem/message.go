package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
)

type messageRepository struct {
	db *messageTable
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db.message}
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[msg.ID] = &msg
	return msg, nil
}

func (repo *messageRepository) QueryMessages(_ context.Context, ordering []core.DBOrdering) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]message.Message, 0, len(repo.db.table))
	for _, msg := range repo.db.table {
		msgs = append(msgs, *msg)
	}
	ascending := len(ordering) > 0 && ordering[0].Field == "created_at" && ordering[0].Ascending
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		if ascending {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (repo *messageRepository) GetMessage(_ context.Context, id string) (message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if msg, ok := repo.db.table[id]; ok {
		return *msg, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) MarkMessageRead(_ context.Context, id string) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	msg, ok := repo.db.table[id]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	msg.IsRead = true
	return *msg, nil
}
