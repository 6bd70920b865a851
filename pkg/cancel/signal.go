package cancel

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// SignalManager forwards OS interrupts (SIGINT, SIGTERM) to a cancellation Source,
// so Ctrl+C and an explicit Cancel are indistinguishable to the render.
type SignalManager struct {
	ctx     context.Context
	stop    context.CancelFunc
	stopped atomic.Bool
	fired   atomic.Bool
	once    sync.Once
	wg      sync.WaitGroup
}

// OnInterrupt starts listening for OS signals and triggers src when one arrives.
func OnInterrupt(src *Source) *SignalManager {
	sm := &SignalManager{}
	sm.ctx, sm.stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	sm.wg.Add(1)
	go func() {
		defer sm.wg.Done()
		select {
		case <-sm.ctx.Done():
			if sm.stopped.Load() {
				return
			}
			sm.fired.Store(true)
			src.Cancel()
		case <-src.Token().Done():
		}
	}()
	return sm
}

// Interrupted reports whether an OS signal triggered the cancellation.
func (sm *SignalManager) Interrupted() bool {
	return sm.fired.Load()
}

// Stop permanently stops the signal listener. It is safe to call multiple times.
func (sm *SignalManager) Stop() {
	sm.once.Do(func() {
		sm.stopped.Store(true)
		sm.stop()
		sm.wg.Wait()
	})
}
