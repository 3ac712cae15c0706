package sync

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gaprio/chatkit/internal/api"
)

// debouncer runs only the last function triggered within the window,
// the standard trailing debounce: a newer trigger supersedes a pending
// one that has not fired yet.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// SearchUsers schedules a debounced user search; deliver is invoked
// with the result once the debounce window closes without a newer
// query. Queries shorter than two characters deliver an empty result
// immediately and cancel any pending search. The current identity is
// filtered out of the results.
func (e *Engine) SearchUsers(ctx context.Context, query string, limit int, deliver func([]api.User, error)) {
	if len(strings.TrimSpace(query)) < 2 {
		e.search.cancel()
		deliver(nil, nil)
		return
	}

	e.search.trigger(func() {
		users, err := e.gw.SearchUsers(ctx, query, limit)
		if err != nil {
			deliver(nil, err)
			return
		}
		if id, ok := e.identity.Current(); ok {
			kept := users[:0]
			for _, u := range users {
				if u.ID != id.ID {
					kept = append(kept, u)
				}
			}
			users = kept
		}
		deliver(users, nil)
	})
}
