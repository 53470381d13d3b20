// Package monitor runs the monitoring loops: periodic discovery scans,
// stability sweeps, manual trigger handling, and dispatch of settled
// files to metadata extraction. Nothing the monitor knows survives a
// restart; sidecar files on disk are the only durable record.
package monitor
