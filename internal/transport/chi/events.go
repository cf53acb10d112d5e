package chi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdesk/internal/state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// eventStream pushes a full state snapshot to websocket clients on every change.
// The first message is the state at connect time.
type eventStream struct {
	console  Console
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func newEventStream(console Console, logger *zap.Logger) *eventStream {
	return &eventStream{
		console: console,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP handles GET /api/events.
func (e *eventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		e.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	// Only the latest snapshot matters: a slow client skips intermediate ones.
	updates := make(chan state.Snapshot, 1)
	cancel := e.console.Subscribe(func(s state.Snapshot) { offer(updates, s) })
	defer cancel()

	done := make(chan struct{})
	go e.readPump(conn, done)
	e.writePump(conn, e.console.Snapshot(), updates, done)
}

// readPump drains client frames so pongs and close frames are processed.
func (e *eventStream) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				e.logger.Debug("websocket read", zap.Error(err))
			}
			return
		}
	}
}

func (e *eventStream) writePump(
	conn *websocket.Conn,
	initial state.Snapshot,
	updates <-chan state.Snapshot,
	done <-chan struct{},
) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	if err := e.send(conn, initial); err != nil {
		return
	}
	last := initial.Version

	for {
		select {
		case snap := <-updates:
			if snap.Version <= last {
				continue
			}
			if err := e.send(conn, snap); err != nil {
				return
			}
			last = snap.Version
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (e *eventStream) send(conn *websocket.Conn, snap state.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snap); err != nil {
		e.logger.Debug("websocket write", zap.Error(err))
		return err
	}
	return nil
}

// offer replaces any pending snapshot with s without blocking. A pending
// snapshot with a higher version than s wins; notifications may arrive out of order.
func offer(ch chan state.Snapshot, s state.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
			select {
			case pending := <-ch:
				if pending.Version > s.Version {
					s = pending
				}
			default:
			}
		}
	}
}
