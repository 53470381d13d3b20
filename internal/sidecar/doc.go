// Package sidecar renders and writes the `.txt` companion files that mark
// a scan file as handled. A success sidecar carries the extracted metadata;
// a failure sidecar carries a fixed marker line. Either way, the sidecar's
// presence permanently excludes the scan file from rediscovery until a
// human deletes it.
package sidecar
