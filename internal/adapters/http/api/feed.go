package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	service "github.com/okian/matchtrack/internal/app"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// DefaultSnapshotInterval is how often the feed pushes a full snapshot.
	DefaultSnapshotInterval = time.Second
)

// Feed message types.
const (
	MessageSnapshot = "snapshot"
	MessageNotice   = "notice"
)

// FeedMessage is one frame of the live feed.
type FeedMessage struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the full view pushed on every snapshot tick.
type Snapshot struct {
	Status  service.Status       `json:"status"`
	Pending []model.PendingEvent `json:"pending"`
}

// FeedOption configures a FeedHandler.
type FeedOption func(*FeedHandler)

// WithSnapshotInterval sets how often snapshots are pushed.
func WithSnapshotInterval(d time.Duration) FeedOption {
	return func(f *FeedHandler) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithCheckOrigin replaces the origin check of the upgrader.
func WithCheckOrigin(check func(r *http.Request) bool) FeedOption {
	return func(f *FeedHandler) {
		if check != nil {
			f.upgrader.CheckOrigin = check
		}
	}
}

// FeedHandler streams a tracker's pending queue and notices over a
// websocket.
type FeedHandler struct {
	deps     Dependencies
	log      logger.Logger
	upgrader websocket.Upgrader
	interval time.Duration
	base     context.Context
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps Dependencies, log logger.Logger, opts ...FeedOption) *FeedHandler {
	f := &FeedHandler{
		deps: deps,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		interval: DefaultSnapshotInterval,
		base:     context.Background(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HandleFeed handles GET /matches/{match}/trackers/{tracker}/feed.
func (f *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.feed"
	p := pathOf(r)
	if _, err := f.deps.Status(r.Context(), p.match, p.tracker); err != nil {
		writeServiceError(r.Context(), f.log, w, op, err)
		return
	}
	notices, stop, err := f.deps.WatchNotices(p.match, p.tracker)
	if err != nil {
		writeServiceError(r.Context(), f.log, w, op, err)
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		stop()
		f.log.Warn(r.Context(), "feed upgrade failed", logger.Error(err))
		return
	}

	c := &feedConn{
		id:      uuid.NewString(),
		path:    p,
		conn:    conn,
		deps:    f.deps,
		notices: notices,
		stop:    stop,
		gone:    make(chan struct{}),
		log: f.log.With(
			logger.String("match", p.match),
			logger.String("tracker", p.tracker),
		),
	}
	c.log.Info(r.Context(), "feed connected", logger.String("conn", c.id))

	// Pumps use the server context; the request context ends with this call.
	go c.writePump(f.base, f.interval)
	go c.readPump()
}

type feedConn struct {
	id      string
	path    trackerPath
	conn    *websocket.Conn
	deps    Dependencies
	notices <-chan model.Notice
	stop    func()
	gone    chan struct{}
	log     logger.Logger
}

// readPump discards client frames and notices disconnects.
func (c *feedConn) readPump() {
	defer close(c.gone)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug(context.Background(), "feed closed unexpectedly", logger.Error(err))
			}
			return
		}
	}
}

func (c *feedConn) writePump(ctx context.Context, interval time.Duration) {
	snapshots := time.NewTicker(interval)
	pings := time.NewTicker(pingPeriod)
	defer func() {
		snapshots.Stop()
		pings.Stop()
		c.stop()
		_ = c.conn.Close()
		c.log.Info(context.Background(), "feed disconnected", logger.String("conn", c.id))
	}()

	if !c.sendSnapshot(ctx) {
		return
	}
	notices := c.notices
	for {
		select {
		case <-ctx.Done():
			c.close(websocket.CloseGoingAway, "server shutting down")
			return
		case <-c.gone:
			return
		case n, ok := <-notices:
			if !ok {
				c.close(websocket.CloseNormalClosure, "session ended")
				return
			}
			if !c.send(FeedMessage{Type: MessageNotice, Payload: n, Timestamp: nowUTC()}) {
				return
			}
		case <-snapshots.C:
			if !c.sendSnapshot(ctx) {
				return
			}
		case <-pings.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *feedConn) sendSnapshot(ctx context.Context) bool {
	st, err := c.deps.Status(ctx, c.path.match, c.path.tracker)
	if err != nil {
		c.close(websocket.CloseNormalClosure, "session ended")
		return false
	}
	snap := Snapshot{Status: st, Pending: []model.PendingEvent{}}
	if st.Role == model.RolePlayer {
		items, err := c.deps.Pending(ctx, c.path.match, c.path.tracker)
		if err != nil {
			c.close(websocket.CloseNormalClosure, "session ended")
			return false
		}
		snap.Pending = items
	}
	return c.send(FeedMessage{Type: MessageSnapshot, Payload: snap, Timestamp: nowUTC()})
}

func (c *feedConn) send(msg FeedMessage) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Debug(context.Background(), "feed write failed", logger.Error(err))
		return false
	}
	return true
}

func (c *feedConn) close(code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
}
