// Package ipc carries control-plane traffic between the CLI and the
// daemon: JSON-RPC over a Unix domain socket, with request/response types
// shared by both sides.
package ipc
