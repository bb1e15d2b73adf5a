package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxMessage bounds one message; comment areas are small but not tiny.
const maxMessage = 16 << 20

// Conn is the session side of a display surface connection.
// Recv blocks until the next message. A *DecodeError leaves the connection
// usable; any other error ends it.
type Conn interface {
	Recv() (Inbound, error)
	Send(m Outbound) error
	Close() error
}

// LineConn speaks JSON lines over a reader and writer, e.g. stdin/stdout.
type LineConn struct {
	sc *bufio.Scanner
	w  io.Writer
	c  io.Closer

	mu sync.Mutex
}

// NewLineConn reads from r and writes to w. closer may be nil.
func NewLineConn(r io.Reader, w io.Writer, closer io.Closer) *LineConn {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxMessage)
	return &LineConn{sc: sc, w: w, c: closer}
}

func (c *LineConn) Recv() (Inbound, error) {
	for c.sc.Scan() {
		line := c.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		return DecodeInbound(line)
	}
	if err := c.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (c *LineConn) Send(m Outbound) error {
	data, err := EncodeOutbound(m)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", m.outboundType(), err)
	}
	return nil
}

func (c *LineConn) Close() error {
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// WSConn speaks the same envelopes over a websocket, one text frame each.
type WSConn struct {
	conn *websocket.Conn

	mu        sync.Mutex // guards writes
	done      chan struct{}
	closeOnce sync.Once
}

// NewWSConn wraps conn and starts its keepalive pinger.
func NewWSConn(conn *websocket.Conn) *WSConn {
	c := &WSConn{conn: conn, done: make(chan struct{})}
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.pingLoop()
	return c
}

func (c *WSConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSConn) write(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}

func (c *WSConn) Recv() (Inbound, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return DecodeInbound(data)
	}
}

func (c *WSConn) Send(m Outbound) error {
	data, err := EncodeOutbound(m)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.write(websocket.CloseMessage, msg); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			err = werr
		}
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
