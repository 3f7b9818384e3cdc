package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jdnichols/parley/internal/stats"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// Client is the server side of one websocket connection. Its two pumps own
// the socket; everything else about the session (authentication state,
// account binding) is owned by the ChatServer loop and must only be touched
// there.
type Client struct {
	conn   *websocket.Conn
	server *ChatServer
	log    *log.Logger
	stats  stats.StatsProvider
	sid    string
	send   chan []byte
	stop   chan struct{}

	// username and authed are written by the server loop on auth and read
	// by it on every dispatch. The pumps never touch them.
	username string
	authed   bool
}

func NewClient(conn *websocket.Conn, cs *ChatServer, logger *log.Logger, sp stats.StatsProvider) *Client {
	sid, err := shortid.Generate()
	if err != nil {
		sid = "unknown"
	}

	return &Client{
		conn:   conn,
		server: cs,
		log:    logger,
		stats:  sp,
		sid:    sid,
		send:   make(chan []byte, sendQueueSize),
		stop:   make(chan struct{}),
	}
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with pings. It exits when the queue closes, the client is stopped,
// or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeMessage(websocket.TextMessage, msg) {
				return
			}
			c.stats.Incr(stats.MessagesSent)
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// ReadPump reads frames off the socket, parses them into typed requests and
// forwards them to the server loop. Unparseable frames are dropped without
// a reply; recognized-but-invalid ones are answered directly.
func (c *Client) ReadPump() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("sid=%s read: %v", c.sid, err)
			}
			break
		}
		c.stats.Incr(stats.MessagesReceived)

		req, err := parseRequest(raw)
		switch {
		case errors.Is(err, errMalformedRequest):
			// noisy or partial client implementations are tolerated
			continue
		case errors.Is(err, errUnknownRequestType):
			c.queueReply(errMsg("unknown request type"))
			continue
		case err != nil:
			c.log.Printf("sid=%s %v", c.sid, err)
			c.queueReply(errMsg("invalid request"))
			continue
		}

		select {
		case c.server.inbound <- &envelope{client: c, req: req}:
		case <-c.server.done:
			return
		}
	}
}

// queueMessage enqueues an already-serialized frame. A full queue drops the
// frame rather than blocking the caller, so one slow peer cannot stall a
// broadcast.
func (c *Client) queueMessage(msg []byte) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("sid=%s send queue full, dropping message", c.sid)
		c.stats.Incr(stats.BroadcastsDropped)
		return false
	}

	return true
}

func (c *Client) queueReply(v any) bool {
	msg, err := json.Marshal(v)
	if err != nil {
		c.log.Printf("sid=%s marshal reply: %v", c.sid, err)
		return false
	}

	return c.queueMessage(msg)
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Client) cleanup() {
	select {
	case c.server.deregister <- c:
	case <-c.server.done:
	}
	c.stopClient()
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("sid=%s write: %v", c.sid, err)
		}
		return false
	}

	return true
}
