// Package websocket pushes parking lot game updates to browser clients.
//
// A Hub owns the registry of connected clients, grouped by session ID. Only
// the goroutine running Hub.Run touches that registry; ServeWS, broadcasts
// and client disconnects all talk to it over channels. Broadcasts never
// block the caller: when the queue is full the message is dropped and logged.
//
// Clients pick their session with the sessionId query parameter and receive
// JSON messages:
//
//	{"session_id": "ab12", "seq": 7, "event": "state_update", "game_state": {...}}
//
// seq counts the messages delivered for a session. A client that sees a gap
// missed a dropped broadcast and should refetch the state over REST. Clients
// whose outbox fills up are disconnected.
//
// Incoming frames are ignored apart from keeping the connection alive.
// Every client gets a UUID that appears in the hub's log entries.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
//	})
package websocket
