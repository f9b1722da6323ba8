// Package retry retries operations with exponential backoff.
//
// [Do] retries until the operation succeeds, the attempts are exhausted,
// the context ends, or the error is classified as permanent. The GitHub
// client uses it for server errors and secondary rate limits.
package retry
