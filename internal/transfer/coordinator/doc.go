// Package coordinator runs the part uploads of a session under a bounded
// worker pool.
//
// At most Concurrency parts are in flight. Completions are reported to the
// progress observer one at a time from the calling goroutine, in completion
// order, and the collected records are returned sorted by offset.
//
// The first failed part cancels the remaining work: parts not yet started
// are never started, parts in flight see their context canceled, and Run
// returns the failure once every in-flight part has returned.
package coordinator
