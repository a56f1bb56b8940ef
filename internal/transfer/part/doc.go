// Package part uploads a single part of an upload session and returns the
// service's acknowledgment.
package part
