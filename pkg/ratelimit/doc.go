// Package ratelimit implements the request throttle shared by the store
// providers.
//
// A throttle value is a number of requests per second. Providers keep a
// Registry and call Wait before every HTTP request:
//
//	limits := ratelimit.NewRegistry()
//	if err := limits.Wait(ctx, req.Throttle); err != nil {
//		return err
//	}
package ratelimit
