package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// writeDeadline bounds how long a single frame write may block. A stalled
// exam client should drop the connection rather than block the event pump.
const writeDeadline = 10 * time.Second

// WriteTyped sends a strongly-typed event payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}
