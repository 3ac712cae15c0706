package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
)

type searchResult struct {
	users []api.User
	err   error
}

func collector() (func([]api.User, error), chan searchResult) {
	ch := make(chan searchResult, 10)
	return func(users []api.User, err error) {
		ch <- searchResult{users: users, err: err}
	}, ch
}

func searchEngine(gw *fakeGateway, window time.Duration) *Engine {
	return NewEngine(gw, nil, alice(), bus.New(), nil, Options{SearchDebounce: window})
}

// TestSearchDebounceCollapsesBurst types "a", "ab", "abc" in quick
// succession: only the final query reaches the gateway.
func TestSearchDebounceCollapsesBurst(t *testing.T) {
	var mu stdsync.Mutex
	var queries []string
	gw := &fakeGateway{
		searchUsers: func(_ context.Context, query string, _ int) ([]api.User, error) {
			mu.Lock()
			queries = append(queries, query)
			mu.Unlock()
			return []api.User{{ID: "u9", Username: "abcuser"}}, nil
		},
	}
	e := searchEngine(gw, 40*time.Millisecond)
	deliver, results := collector()

	ctx := context.Background()
	e.SearchUsers(ctx, "a", 10, deliver)
	e.SearchUsers(ctx, "ab", 10, deliver)
	e.SearchUsers(ctx, "abc", 10, deliver)

	// "a" is below the minimum length and resolves empty immediately.
	select {
	case res := <-results:
		if res.err != nil || len(res.users) != 0 {
			t.Errorf("short query result = %+v, want empty", res)
		}
	case <-time.After(time.Second):
		t.Fatal("no immediate result for short query")
	}

	select {
	case res := <-results:
		if res.err != nil {
			t.Fatalf("debounced search error = %v", res.err)
		}
		if len(res.users) != 1 || res.users[0].Username != "abcuser" {
			t.Errorf("result = %v, want [abcuser]", res.users)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced search never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 1 || queries[0] != "abc" {
		t.Errorf("gateway queries = %v, want [abc]", queries)
	}
}

func TestSearchShortQueryCancelsPending(t *testing.T) {
	gw := &fakeGateway{
		searchUsers: func(_ context.Context, query string, _ int) ([]api.User, error) {
			return []api.User{{ID: "u9", Username: query}}, nil
		},
	}
	e := searchEngine(gw, 40*time.Millisecond)
	deliver, results := collector()

	ctx := context.Background()
	e.SearchUsers(ctx, "bob", 10, deliver)
	// Clearing the input back below the minimum cancels the pending search.
	e.SearchUsers(ctx, "b", 10, deliver)

	select {
	case res := <-results:
		if len(res.users) != 0 {
			t.Errorf("result = %v, want empty", res.users)
		}
	case <-time.After(time.Second):
		t.Fatal("no result for cleared query")
	}

	time.Sleep(100 * time.Millisecond)
	if n := gw.callCount("SearchUsers"); n != 0 {
		t.Errorf("gateway calls = %d, want 0 (pending search cancelled)", n)
	}
	select {
	case res := <-results:
		t.Errorf("unexpected extra delivery: %+v", res)
	default:
	}
}

func TestSearchFiltersSelf(t *testing.T) {
	gw := &fakeGateway{
		searchUsers: func(context.Context, string, int) ([]api.User, error) {
			return []api.User{
				{ID: "u1", Username: "alice"},
				{ID: "u2", Username: "alicia"},
			}, nil
		},
	}
	e := searchEngine(gw, 5*time.Millisecond)
	deliver, results := collector()

	e.SearchUsers(context.Background(), "ali", 10, deliver)

	select {
	case res := <-results:
		if len(res.users) != 1 || res.users[0].ID != "u2" {
			t.Errorf("result = %v, want only u2 (self filtered)", res.users)
		}
	case <-time.After(time.Second):
		t.Fatal("search never delivered")
	}
}

func TestSearchDeliversTypedError(t *testing.T) {
	gw := &fakeGateway{
		searchUsers: func(context.Context, string, int) ([]api.User, error) {
			return nil, api.Errf(api.KindNetwork, "down")
		},
	}
	e := searchEngine(gw, 5*time.Millisecond)
	deliver, results := collector()

	e.SearchUsers(context.Background(), "bob", 10, deliver)

	select {
	case res := <-results:
		if !api.IsKind(res.err, api.KindNetwork) {
			t.Errorf("error kind = %v, want network", api.KindOf(res.err))
		}
	case <-time.After(time.Second):
		t.Fatal("search never delivered")
	}
}
