package handler

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/car-dealership/internal/notify"
)

const (
	// writeTimeout bounds a single websocket frame write.
	writeTimeout = 5 * time.Second
	// sendQueueSize is how many notifications may wait for one socket.
	sendQueueSize = 16
)

var errListenerBacklog = errors.New("websocket send queue full")

// Registry is the part of notify.Hub a websocket connection uses.
type Registry interface {
	Register(l notify.Listener)
	Unregister(l notify.Listener)
}

// wsListener adapts a websocket connection to notify.Listener.  Send only
// queues; writeLoop owns the connection writes.
type wsListener struct {
	conn     *websocket.Conn
	queue    chan notify.Notification
	overflow chan struct{}
	once     sync.Once
}

func newWSListener(conn *websocket.Conn) *wsListener {
	return &wsListener{
		conn:     conn,
		queue:    make(chan notify.Notification, sendQueueSize),
		overflow: make(chan struct{}),
	}
}

// Send never blocks.  A full queue fails the send so the hub drops the
// listener, and the write loop then closes the socket.
func (l *wsListener) Send(n notify.Notification) error {
	select {
	case l.queue <- n:
		return nil
	default:
		l.once.Do(func() { close(l.overflow) })
		return errListenerBacklog
	}
}

// writeLoop drains the queue until done is closed.  Any write failure or
// overflow closes the connection, which ends the receive loop.
func (l *wsListener) writeLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-l.overflow:
			_ = l.conn.Close()
			return
		case n := <-l.queue:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := websocket.JSON.Send(l.conn, n); err != nil {
				_ = l.conn.Close()
				return
			}
		}
	}
}

// AdminSocket upgrades to a websocket and streams notifications until the
// client disconnects.  Incoming frames are read and discarded.
func AdminSocket(hub Registry, lg *slog.Logger) echo.HandlerFunc {
	lg = orDefault(lg)
	return func(c echo.Context) error {
		me := identity(c)
		websocket.Handler(func(ws *websocket.Conn) {
			defer ws.Close()
			l := newWSListener(ws)
			hub.Register(l)
			defer hub.Unregister(l)
			done := make(chan struct{})
			defer close(done)
			go l.writeLoop(done)
			lg.Info("admin websocket connected", "user_id", me.ID)

			var discard string
			for {
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					break
				}
			}
			lg.Info("admin websocket closed", "user_id", me.ID)
		}).ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
