// Package clock provides a tiny time abstraction.
//
// Production code depends on the Clocker interface instead of calling
// time.Now() directly. Timed behaviour (liveness prompt dwell, token expiry)
// can then be driven by a Manual clock in tests.
package clock
