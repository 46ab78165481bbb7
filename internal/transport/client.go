package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mafiad/internal/game"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// client is one websocket participant. It implements game.Sink: Send
// enqueues without blocking, and the write pump drains the queue. If a
// slow client fills its buffer, events are dropped for that client only;
// the engine never stalls on I/O.
type client struct {
	srv  *Server
	conn *websocket.Conn
	ip   string
	log  zerolog.Logger

	privileged bool

	// Bound once the client enters a room. Read and written only by the
	// read loop, which is the sole dispatcher for this connection.
	roomCode string
	playerID string

	send      chan game.Event
	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(srv *Server, conn *websocket.Conn, ip string, privileged bool, log zerolog.Logger) *client {
	return &client{
		srv:        srv,
		conn:       conn,
		ip:         ip,
		privileged: privileged,
		log:        log,
		send:       make(chan game.Event, sendBuffer),
		closed:     make(chan struct{}),
	}
}

// Send implements game.Sink.
func (c *client) Send(ev game.Event) {
	select {
	case c.send <- ev:
	case <-c.closed:
	default:
		c.log.Warn().Str("event", ev.Type).Msg("send buffer full; dropping event")
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
		c.srv.limiter.release(c.ip)
		if c.roomCode != "" && c.playerID != "" {
			c.srv.reg.HandleDisconnect(c.roomCode, c.playerID)
		}
	})
}

func (c *client) writePump() {
	defer c.close()
	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Debug().Err(err).Msg("write failed; closing")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *client) sendError(err error) {
	c.Send(game.Event{Type: game.EvError, Data: map[string]any{
		"message": err.Error(),
	}})
}
