// Package chat implements the in-memory room broadcaster behind GoChat.
//
// A Registry hands out Rooms by name. A Room admits members under a unique
// display name, keeps a newest-first history and fans each message out to
// every member except its author. A Session runs one connection through
// join, history replay, relay and leave on top of an abstract Transport, so
// the package has no knowledge of WebSockets or HTTP.
package chat
