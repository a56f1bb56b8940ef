// Package retry provides the retry policies for part uploads.
//
// Part uploads are not retried unless the client is configured with a
// policy. Backoff delays come from the AWS SDK's exponential jitter backoff,
// stretched to honour any Retry-After the service sends.
package retry
