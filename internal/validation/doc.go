// Package validation provides centralized input validation logic.
// This includes folder identifiers, file names and concurrency limits.
//
// All user inputs are validated before a session is requested so that
// obviously bad uploads fail without a round trip to the service.
package validation
