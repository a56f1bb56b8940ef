// Package pool provides buffer reuse for part transfers.
//
// Every part of a session has the same size except the last one, so the
// coordinator keeps a pool of part-sized buffers and each worker borrows one
// for the lifetime of a single part upload.
package pool
