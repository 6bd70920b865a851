/*
Package cancel provides the one-shot cancellation token shared by a render and its caller.

New returns a paired trigger handle (Source) and observe handle (Token). Triggering is
idempotent and goroutine-safe; every subscriber is notified at most once, and subscribing
after the trigger fires the callback immediately, so no signal can be missed.

	src, tok := cancel.New()
	stop := tok.Subscribe(func() { log.Println("cancelled") })
	defer stop()
	src.Cancel()
	src.Cancel() // no-op
*/
package cancel
