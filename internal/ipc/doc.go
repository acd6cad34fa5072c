// Package ipc defines the wire protocol between the host and the index
// server child process.
//
// The protocol is JSON-framed request/response over a unix socket. Each
// request carries a unique ID, a method name and a raw params payload; each
// response echoes the ID and carries either an output payload or an error
// string. The four operations the server exposes are index building, vector
// query, inline lexical/structural query and a resource usage probe.
//
// Both ends use the same framing helpers, so protocol drift between host
// and server is a compile error rather than a runtime surprise.
package ipc
