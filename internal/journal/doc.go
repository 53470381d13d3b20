// Package journal keeps an append-only SQLite record of status events for
// inspection after the fact. It is advisory: the monitor never consults it
// when deciding what to track or dispatch.
package journal
