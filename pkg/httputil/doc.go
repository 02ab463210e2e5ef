// Package httputil provides the HTTP client used to fetch AST collections.
//
// # Overview
//
//   - [Client]: GET with retries and observability hooks
//   - [Retry]: automatic retry with exponential backoff
//
// # Retry
//
// [Retry] re-runs an operation only when it fails with a [RetryableError].
// [Client] marks network errors, 429 and 5xx responses as retryable, so a
// briefly unavailable endpoint does not fail a viewer's initial load:
//
//	c := httputil.NewClient(30 * time.Second)
//	body, err := c.Get(ctx, "http://localhost:5000/ast")
//
// Other non-2xx responses come back as [*StatusError] on the first attempt.
//
// # Configuration
//
// [DefaultBackoff] makes 3 attempts starting at 1 second, doubling up to 10
// seconds. A numeric Retry-After header on 429/5xx responses overrides the
// computed delay for that attempt. Each attempt times out after 30 seconds.
package httputil
