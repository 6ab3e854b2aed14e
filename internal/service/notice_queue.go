package service

import (
	"context"
	"sync"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
)

const defaultNoticeCapacity = 20

// NoticeQueue buffers the notices of one client until they are shown.
// When full the oldest notice is dropped.
type NoticeQueue struct {
	mu       sync.Mutex
	notices  []domain.Notice
	capacity int
	listener func(domain.Notice)
}

// NewNoticeQueue creates a queue holding at most capacity notices
func NewNoticeQueue(capacity int) *NoticeQueue {
	if capacity <= 0 {
		capacity = defaultNoticeCapacity
	}
	return &NoticeQueue{capacity: capacity}
}

// OnNotify registers fn to be called for every new notice
func (q *NoticeQueue) OnNotify(fn func(domain.Notice)) {
	q.mu.Lock()
	q.listener = fn
	q.mu.Unlock()
}

func (q *NoticeQueue) Notify(ctx context.Context, notice domain.Notice) {
	q.mu.Lock()
	if len(q.notices) == q.capacity {
		q.notices = q.notices[1:]
	}
	q.notices = append(q.notices, notice)
	listener := q.listener
	q.mu.Unlock()

	observability.FromContext(ctx).Debug("notice queued", "level", notice.Level, "message", notice.Message)
	if listener != nil {
		listener(notice)
	}
}

// Drain returns the pending notices in order and empties the queue
func (q *NoticeQueue) Drain() []domain.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.notices
	q.notices = nil
	if out == nil {
		return []domain.Notice{}
	}
	return out
}

// Len returns the number of pending notices
func (q *NoticeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.notices)
}
