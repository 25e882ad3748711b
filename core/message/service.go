package message

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
)

var ErrNotFound = errors.New("message not found")

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		QueryMessages(ctx context.Context, ordering []core.DBOrdering) ([]Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		// MarkMessageRead only touches the row matching id.
		MarkMessageRead(ctx context.Context, id string) (Message, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nm NewMessage) (Message, error)
		Query(ctx context.Context, search string) ([]Message, error)
		Get(ctx context.Context, id string) (Message, error)
		MarkRead(ctx context.Context, id string) (Message, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// Create stores a new unread message & forwards it to the staff.
// nm must have been validated.
func (svc *Service) Create(ctx context.Context, nm NewMessage) (Message, error) {
	msg := Message{
		ID:        uuid.New().String(),
		Name:      nm.Name,
		Email:     nm.Email,
		Subject:   nm.Subject,
		Message:   nm.Message,
		CreatedAt: time.Now().UTC(),
	}
	msg, err := svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{svc.conf.StaffEmail},
			ReplyTo:      &mail.Address{Name: msg.Name, Address: msg.Email},
			Subject:      "Contact: " + msg.Subject,
			TemplateName: "new_message",
			TemplateData: msg,
		})
	}
	return msg, nil
}

// Query returns all messages, newest first, matching search (see Filter).
func (svc *Service) Query(ctx context.Context, search string) ([]Message, error) {
	msgs, err := svc.repo.QueryMessages(ctx, core.NewestFirst)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	return Filter(msgs, search), nil
}

func (svc *Service) Get(ctx context.Context, id string) (Message, error) {
	return svc.repo.GetMessage(ctx, id)
}

// MarkRead flags the message as read. Marking a read message again is a no-op.
func (svc *Service) MarkRead(ctx context.Context, id string) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if msg.IsRead {
		return msg, nil
	}
	msg, err = svc.repo.MarkMessageRead(ctx, id)
	return msg, errors.Wrap(err, "marking message as read")
}
