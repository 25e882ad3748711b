// Package notify collects the transient, dismissible notifications shown to the user.
package notify

import (
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	ID        int
	Level     Level
	Title     string
	Message   string
	CreatedAt time.Time
}

// Notifier is implemented by anything able to show notifications.
type Notifier interface {
	Notify(level Level, title, message string)
}

// Queue keeps notifications until they are dismissed or drained.
type Queue struct {
	mu      sync.Mutex
	nextID  int
	pending []Notification
	onNew   func(Notification)
}

var _ Notifier = (*Queue)(nil)

// NewQueue returns an empty queue. onNew, if not nil, is called with every new notification.
func NewQueue(onNew func(Notification)) *Queue {
	return &Queue{nextID: 1, onNew: onNew}
}

func (q *Queue) Notify(level Level, title, message string) {
	q.mu.Lock()
	n := Notification{ID: q.nextID, Level: level, Title: title, Message: message, CreatedAt: time.Now()}
	q.nextID++
	q.pending = append(q.pending, n)
	onNew := q.onNew
	q.mu.Unlock()

	if onNew != nil {
		onNew(n)
	}
}

// Pending returns the notifications not dismissed yet, oldest first.
func (q *Queue) Pending() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Notification(nil), q.pending...)
}

// Dismiss removes the notification matching id. It reports whether one was found.
func (q *Queue) Dismiss(id int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.pending {
		if n.ID == id {
			q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Drain returns & removes all pending notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	res := q.pending
	q.pending = nil
	return res
}

// Count returns the number of pending notifications of level.
func (q *Queue) Count(level Level) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int
	for _, notif := range q.pending {
		if notif.Level == level {
			n++
		}
	}
	return n
}
