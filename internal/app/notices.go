package service

import (
	"context"
	"sync"

	"github.com/okian/matchtrack/internal/domain/model"
)

const defaultNoticeLimit = 50

// NoticeBoard keeps a tracker's recent notices and the persistent banner
// shown while a condition such as being offline lasts.
type NoticeBoard struct {
	mu       sync.Mutex
	limit    int
	items    []model.Notice
	banner   *model.Notice
	watchers map[int]chan model.Notice
	nextID   int
}

// NewNoticeBoard creates a board keeping at most limit notices.
func NewNoticeBoard(limit int) *NoticeBoard {
	if limit <= 0 {
		limit = defaultNoticeLimit
	}
	return &NoticeBoard{limit: limit, watchers: make(map[int]chan model.Notice)}
}

// Notify records n and forwards it to watchers that have room.
func (b *NoticeBoard) Notify(_ context.Context, n model.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.limit; over > 0 {
		b.items = append(b.items[:0], b.items[over:]...)
	}
	for _, ch := range b.watchers {
		select {
		case ch <- n:
		default:
		}
	}
}

// List returns the retained notices, oldest first.
func (b *NoticeBoard) List() []model.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Notice, len(b.items))
	copy(out, b.items)
	return out
}

// SetBanner sets the persistent notice.
func (b *NoticeBoard) SetBanner(n model.Notice) {
	b.mu.Lock()
	b.banner = &n
	b.mu.Unlock()
}

// ClearBanner removes the persistent notice.
func (b *NoticeBoard) ClearBanner() {
	b.mu.Lock()
	b.banner = nil
	b.mu.Unlock()
}

// Banner returns the persistent notice, if any.
func (b *NoticeBoard) Banner() *model.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.banner == nil {
		return nil
	}
	n := *b.banner
	return &n
}

// Watch streams new notices until cancel is called.
func (b *NoticeBoard) Watch() (<-chan model.Notice, func()) {
	ch := make(chan model.Notice, 16)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.watchers[id]; ok {
				delete(b.watchers, id)
				close(ch)
			}
		})
	}
}

// CloseWatchers ends every stream.
func (b *NoticeBoard) CloseWatchers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.watchers {
		delete(b.watchers, id)
		close(ch)
	}
}
