// Package client is a small API client for a running launcher server.
//
// Requests go through resty on top of a retryablehttp transport, so
// connection errors and 5xx responses are retried with backoff before an
// error is returned.
//
// Example Usage:
//
//	c := client.New("http://localhost:8075", client.DefaultRetryConfig())
//	doc, err := c.List(ctx)
//	view, err := c.Get(ctx, "survival")
//	if errors.Is(err, client.ErrNotFound) { ... }
package client
