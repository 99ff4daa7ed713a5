package polish

import (
	"context"
	"time"
)

type backgroundTimer struct {
	stop chan struct{}
}

// StartBackground polishes the session every interval with an automatic
// trigger until StopBackground. Starting again for the same session replaces
// the previous timer.
func (c *Coordinator) StartBackground(sessionID string, interval time.Duration, hooks Hooks) {
	if interval <= 0 {
		return
	}

	t := &backgroundTimer{stop: make(chan struct{})}

	c.mu.Lock()
	if old, ok := c.timers[sessionID]; ok {
		close(old.stop)
	}
	c.timers[sessionID] = t
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Debugw("background polishing started", "session", sessionID, "interval", interval)

	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				res := c.run(context.Background(), sessionID, Automatic, hooks.OnStart)
				if res.Status == StatusError {
					c.log.Warnw("background polish failed", "session", sessionID, "error", res.Err)
				}
				if hooks.OnResult != nil {
					hooks.OnResult(res)
				}
			}
		}
	}()
}

// StopBackground cancels the session's timer. A run already in flight
// finishes on its own.
func (c *Coordinator) StopBackground(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[sessionID]; ok {
		close(t.stop)
		delete(c.timers, sessionID)
		c.log.Debugw("background polishing stopped", "session", sessionID)
	}
}

// BackgroundCount returns the number of sessions with a live timer.
func (c *Coordinator) BackgroundCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Shutdown stops every timer and waits for in-flight background runs.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	for id, t := range c.timers {
		close(t.stop)
		delete(c.timers, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
