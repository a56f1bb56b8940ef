// Package transfer handles the transfer side of an upload session.
// This includes single part uploads and the coordinator that runs them concurrently.
package transfer
