// Package roster maps a tracker to the players it is accountable for.
package roster

import (
	"container/list"
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
)

// Roster is a tracker's resolved, read-only player set.
type Roster struct {
	players []model.Player
	byID    map[string]model.Player
}

func newRoster(players []model.Player) *Roster {
	r := &Roster{players: players, byID: make(map[string]model.Player, len(players))}
	for _, p := range players {
		r.byID[p.ID] = p
	}
	return r
}

// Empty returns a roster with no players.
func Empty() *Roster { return newRoster(nil) }

// Contains reports whether playerID is on the roster.
func (r *Roster) Contains(playerID string) bool {
	_, ok := r.byID[playerID]
	return ok
}

// Player looks up a roster member.
func (r *Roster) Player(playerID string) (model.Player, bool) {
	p, ok := r.byID[playerID]
	return p, ok
}

// Players returns members in assignment order.
func (r *Roster) Players() []model.Player {
	out := make([]model.Player, len(r.players))
	copy(out, r.players)
	return out
}

// Len returns the member count.
func (r *Roster) Len() int { return len(r.players) }

// defaultCacheSize bounds the resolved rosters kept by a Resolver.
const defaultCacheSize = 1024

type cacheEntry struct {
	key    string
	roster *Roster
}

// Resolver builds rosters and caches them by input content. The cache is
// bounded; the least recently used roster is evicted first.
type Resolver struct {
	mu      sync.Mutex
	cache   map[string]*list.Element
	order   *list.List
	maxSize int

	logger logger.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCacheSize bounds the number of cached rosters. Non-positive sizes
// keep the default.
func WithCacheSize(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultCacheSize,
		logger:  logger.Get().Named("roster"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the players of the match roster that assignment names,
// in assignment order. Ids missing from the match roster are skipped.
// A changed assignment or roster yields a new cache key.
func (r *Resolver) Resolve(ctx context.Context, trackerID string, assignment model.Assignment, players []model.Player) *Roster {
	key := cacheKey(trackerID, assignment, players)

	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.cache[key]; ok {
		r.order.MoveToBack(el)
		return el.Value.(*cacheEntry).roster
	}

	byID := make(map[string]model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	resolved := make([]model.Player, 0, len(assignment.PlayerIDs))
	for _, id := range assignment.PlayerIDs {
		p, ok := byID[id]
		if !ok {
			r.logger.Warn(ctx, "assigned player missing from match roster",
				logger.String("tracker", trackerID),
				logger.String("player", id),
			)
			continue
		}
		resolved = append(resolved, p)
	}

	out := newRoster(resolved)
	if r.order.Len() >= r.maxSize {
		oldest := r.order.Front()
		r.order.Remove(oldest)
		delete(r.cache, oldest.Value.(*cacheEntry).key)
	}
	r.cache[key] = r.order.PushBack(&cacheEntry{key: key, roster: out})
	return out
}

// Invalidate drops every cached roster.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cache)
	r.order.Init()
}

// Cached returns the number of cached rosters.
func (r *Resolver) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

func cacheKey(trackerID string, a model.Assignment, players []model.Player) string {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.WriteString("\x00")
	}
	write(trackerID)
	for _, id := range a.PlayerIDs {
		write(id)
	}
	write("|")
	for _, p := range players {
		write(p.ID)
		write(string(p.Team))
		write(strconv.Itoa(p.Number))
		write(p.Name)
		write(p.Position)
	}
	return trackerID + ":" + strconv.FormatUint(h.Sum64(), 16)
}
