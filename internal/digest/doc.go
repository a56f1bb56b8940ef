// Package digest computes the SHA-1 digests the upload session protocol uses
// for integrity checks.
//
// Digests are base64 encoded and travel in a "digest: sha=<value>" header on
// both part uploads and the commit call.
package digest
