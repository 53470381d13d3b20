// Package notifications delivers push notifications about processing
// outcomes via ntfy. Without a configured topic every notification is a
// silent no-op.
package notifications
