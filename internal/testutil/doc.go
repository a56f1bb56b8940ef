// Package testutil provides test utilities and mocks for chunked uploads.
// This package is internal and should only be used for testing within the module.
package testutil
