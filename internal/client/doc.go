// Package client is the host-side façade over the index server RPC
// channel. It spawns (or attaches to) the server process, performs the
// readiness handshake, and exposes the four engine operations as typed
// methods.
//
// Error policy follows the controller's needs: build and vector query
// failures are returned as errors for the caller to classify, inline
// context failures degrade to an empty result.
package client
