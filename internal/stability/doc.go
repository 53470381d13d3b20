// Package stability decides when a tracked file has finished arriving.
// Settling is judged purely by size quiescence: a file is stable once its
// size has stayed unchanged for the full settle window, measured from the
// most recent observed change.
package stability
