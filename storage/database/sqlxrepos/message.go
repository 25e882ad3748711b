package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
)

const messageColumns = `id, name, email, subject, message, is_read, created_at`

var messageOrderings = map[string]bool{
	"created_at": true,
	"name":       true,
	"is_read":    true,
}

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	q := `INSERT INTO contact_messages (` + messageColumns + `)
		VALUES (:id, :name, :email, :subject, :message, :is_read, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, msg); err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messageRepository) QueryMessages(ctx context.Context, ordering []core.DBOrdering) ([]message.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM contact_messages ORDER BY ` +
		core.OrderByClause(ordering, messageOrderings, core.NewestFirst)

	msgs := make([]message.Message, 0)
	if err := repo.db.SelectContext(ctx, &msgs, q); err != nil {
		return nil, errors.Wrap(err, "selecting messages")
	}
	return msgs, nil
}

func (repo messageRepository) GetMessage(ctx context.Context, id string) (message.Message, error) {
	if !isUUID(id) {
		return message.Message{}, message.ErrNotFound
	}
	var msg message.Message
	err := repo.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM contact_messages WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return message.Message{}, message.ErrNotFound
	}
	return msg, errors.Wrap(err, "selecting message")
}

func (repo messageRepository) MarkMessageRead(ctx context.Context, id string) (message.Message, error) {
	if !isUUID(id) {
		return message.Message{}, message.ErrNotFound
	}
	var msg message.Message
	err := repo.db.GetContext(
		ctx, &msg,
		`UPDATE contact_messages SET is_read = TRUE WHERE id = $1 RETURNING `+messageColumns,
		id,
	)
	if err == sql.ErrNoRows {
		return message.Message{}, message.ErrNotFound
	}
	return msg, errors.Wrap(err, "marking message as read")
}
