package api

import (
	"net/url"
	"strings"
	"sync"
)

// flightGroup collapses concurrent identical requests: while a request
// with a given fingerprint is in flight, later callers with the same
// fingerprint wait for and share its result instead of issuing a new
// network call. Once settled the fingerprint is released, so the next
// call issues a fresh request.
//
// Only idempotent reads go through the group; collapsing writes would
// silently drop user-intended side effects.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

type flightCall struct {
	done chan struct{}
	data []byte
	err  error
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: make(map[string]*flightCall)}
}

// Do executes fn under the given fingerprint, or waits for an in-flight
// execution with the same fingerprint and returns its result.
func (g *flightGroup) Do(fingerprint string, fn func() ([]byte, error)) ([]byte, error) {
	g.mu.Lock()
	if c, ok := g.calls[fingerprint]; ok {
		g.mu.Unlock()
		<-c.done
		return c.data, c.err
	}
	c := &flightCall{done: make(chan struct{})}
	g.calls[fingerprint] = c
	g.mu.Unlock()

	c.data, c.err = fn()

	g.mu.Lock()
	delete(g.calls, fingerprint)
	g.mu.Unlock()
	close(c.done)

	return c.data, c.err
}

// Fingerprint derives the dedup key from method, path and normalized
// query parameters. Encode sorts keys, so two calls with the same
// parameters in different order collapse to one fingerprint.
func Fingerprint(method, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(path)
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}
