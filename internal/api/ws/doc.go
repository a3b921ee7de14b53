// Package ws streams instance list changes to websocket clients.
//
// Message Types (Server → Client):
//   - hello: sent once on connect with the current generation and count
//   - reset: the list was replaced; refetch it
//   - item_added: an instance was appended at index
//   - item_changed: the instance at index changed
//   - pong: reply to ping
//   - error: the client sent something the hub does not understand
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Example Usage:
//
//	hub := ws.NewHub(list, logger)
//	defer hub.Close()
//	router.GET("/stream", hub.HandleConnection)
package ws
