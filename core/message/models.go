package message

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/harmony/core"
)

// Message is a contact message sent from the public site.
type Message struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewMessage contains the information submitted by the public contact form.
type NewMessage struct {
	Name    string `json:"name" form:"name" validate:"required,max=255"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Subject string `json:"subject" form:"subject" validate:"required,max=255"`
	Message string `json:"message" form:"message" validate:"required,max=5000"`
}

func (nm *NewMessage) Clean() {
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Message = core.CleanString(nm.Message)
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Clean()
	return validate.Struct(nm)
}

// UpdateMessage is the payload of the admin update. Only `is_read: true` is accepted.
type UpdateMessage struct {
	IsRead *bool `json:"is_read" validate:"required"`
}

func (um *UpdateMessage) Validate(validate *validator.Validate) error {
	if err := validate.Struct(um); err != nil {
		return err
	}
	if !*um.IsRead {
		return core.NewFieldError("is_read", "a message cannot be marked as unread")
	}
	return nil
}

// Filter returns the messages whose sender name or subject contains `search`, case-insensitively.
// An empty search returns `msgs` as is. `msgs` is never modified.
func Filter(msgs []Message, search string) []Message {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return msgs
	}
	res := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if strings.Contains(strings.ToLower(msg.Name), search) ||
			strings.Contains(strings.ToLower(msg.Subject), search) {
			res = append(res, msg)
		}
	}
	return res
}

// Replace returns a copy of `msgs` where the message matching `id` went through `patch`.
func Replace(msgs []Message, id string, patch func(Message) Message) (res []Message, ok bool) {
	res = make([]Message, len(msgs))
	copy(res, msgs)
	for i := range res {
		if res[i].ID == id {
			res[i] = patch(res[i])
			return res, true
		}
	}
	return res, false
}

// MarkedRead is the only patch available on messages: reading is one-way.
func MarkedRead(msg Message) Message {
	msg.IsRead = true
	return msg
}

func CountUnread(msgs []Message) int {
	var n int
	for _, msg := range msgs {
		if !msg.IsRead {
			n++
		}
	}
	return n
}
