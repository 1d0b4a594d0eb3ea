package classify

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Generates an HTTP client with general-purpose defaults around timeouts and
// retries for the slow detector backends. Retry policy belongs here, in the
// backend clients, not in the moderation core: the core only ever sees the
// final (possibly degraded) verdict.
//
// Retries on connection errors, 5xx status (except 501), and 429 responses
// (respecting 'Retry-After').
func robustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil
	client := retryClient.StandardClient()
	client.Timeout = 15 * time.Second
	return client
}
