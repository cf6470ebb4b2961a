// Package retry provides the pause strategies used between failed review
// page fetches.
//
// The scrape loop retries a failed page in place, so this package only
// decides how long to wait:
//
//	backoff, err := retry.New("exponential", time.Minute, 10*time.Minute)
//	if err := retry.Wait(ctx, backoff.NextDelay(attempt)); err != nil {
//		return err // context cancelled
//	}
//
// ConstantBackoff is the default and matches a fixed pause duration.
package retry
