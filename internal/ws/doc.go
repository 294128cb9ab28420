// Package ws streams program console output over WebSocket.
//
// A connection first receives every line printed so far, then each new
// line as it is printed. When the run ends the server sends "complete" and
// closes the connection.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - line: One console line, with the printing env's id
//   - pong: Reply to ping
//   - complete: The run ended
//   - error: Unknown client message
//
// Example Usage:
//
//	handler := ws.NewHandler(console, logger)
//	router.GET("/console/stream", handler.HandleConnection)
package ws
