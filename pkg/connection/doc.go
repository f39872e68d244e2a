// Package connection provides connect retries for remote probe sessions.
//
// A probe server may still be starting, or its debug link may be
// re-enumerating, when a measurement run begins. Connect attempts are
// therefore retried with exponential backoff until the connect timeout
// (carried by the context) expires:
//
//  1. Initial delay: 100 milliseconds
//  2. Exponential increase: 200ms, 400ms, 800ms
//  3. Maximum delay: 1 second
//  4. Continue at 1s until the context is done or MaxAttempts is reached
//
// Jitter is added to every delay:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// Errors marked Permanent (a rejected protocol version, for example) stop
// the retries immediately. A session that is lost after it was established
// is never re-dialed by this package.
package connection
