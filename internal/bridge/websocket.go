package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

const wsWriteWait = 10 * time.Second

// resizeMessage is the control frame a browser terminal sends on resize.
type resizeMessage struct {
	Type string `json:"type"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// WSChannel adapts a WebSocket connection. Text and binary frames are
// keystrokes, except a JSON {"type":"resize","rows":R,"cols":C} text frame.
type WSChannel struct {
	conn *websocket.Conn

	wmu       sync.Mutex
	closeOnce sync.Once
}

func NewWSChannel(conn *websocket.Conn) *WSChannel {
	return &WSChannel{conn: conn}
}

// Recv implements Channel. ctx is not consulted; Close unblocks a pending
// read.
func (c *WSChannel) Recv(_ context.Context) (Frame, error) {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	if mt == websocket.TextMessage {
		if size, ok := parseResize(data); ok {
			return Frame{Resize: &size}, nil
		}
	}
	return Frame{Data: data}, nil
}

func parseResize(data []byte) (sshutil.WindowSize, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return sshutil.WindowSize{}, false
	}
	var msg resizeMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil || msg.Type != "resize" {
		return sshutil.WindowSize{}, false
	}
	return sshutil.WindowSize{Rows: msg.Rows, Cols: msg.Cols}, true
}

// Send implements Channel. Valid UTF-8 goes out as a text frame, anything
// else as binary.
func (c *WSChannel) Send(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	mt := websocket.BinaryMessage
	if utf8.Valid(p) {
		mt = websocket.TextMessage
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(mt, p)
}

// Close sends a close frame and closes the connection.
func (c *WSChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.wmu.Unlock()
		err = c.conn.Close()
	})
	return err
}
