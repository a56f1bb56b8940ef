// Package transport implements the authenticated HTTP connection to the
// upload service, plus the JSON helpers the session operations share.
package transport
