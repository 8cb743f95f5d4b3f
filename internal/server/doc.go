// Package server is the HTTP and WebSocket surface of GoChat.
//
// A Dispatcher validates join requests on /chat/{room}, upgrades them with
// gorilla/websocket and runs one chat.Session per connection over a wsConn
// transport. The remaining handlers serve health checks, the room listing
// and a browser test page.
package server
