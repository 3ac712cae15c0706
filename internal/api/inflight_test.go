package api

import (
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFlightGroupCollapsesConcurrentCalls(t *testing.T) {
	g := newFlightGroup()
	var executions atomic.Int32
	release := make(chan struct{})

	fn := func() ([]byte, error) {
		executions.Add(1)
		<-release
		return []byte("result"), nil
	}

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := g.Do("GET /conversations/user/u1", fn)
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			results[i] = data
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if executions.Load() != 1 {
		t.Errorf("executions = %d, want 1", executions.Load())
	}
	for i, data := range results {
		if string(data) != "result" {
			t.Errorf("caller %d got %q, want shared result", i, data)
		}
	}
}

func TestFlightGroupSequentialCallsNotCollapsed(t *testing.T) {
	g := newFlightGroup()
	var executions atomic.Int32
	fn := func() ([]byte, error) {
		executions.Add(1)
		return nil, nil
	}

	// Once settled, the fingerprint is released.
	if _, err := g.Do("GET /x", fn); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Do("GET /x", fn); err != nil {
		t.Fatal(err)
	}
	if executions.Load() != 2 {
		t.Errorf("executions = %d, want 2", executions.Load())
	}
}

func TestFlightGroupDistinctFingerprints(t *testing.T) {
	g := newFlightGroup()
	var executions atomic.Int32
	release := make(chan struct{})
	fn := func() ([]byte, error) {
		executions.Add(1)
		<-release
		return nil, nil
	}

	var wg sync.WaitGroup
	for _, fp := range []string{"GET /a", "GET /b"} {
		wg.Add(1)
		go func(fp string) {
			defer wg.Done()
			_, _ = g.Do(fp, fn)
		}(fp)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if executions.Load() != 2 {
		t.Errorf("executions = %d, want 2 for distinct fingerprints", executions.Load())
	}
}

func TestFlightGroupSharesError(t *testing.T) {
	g := newFlightGroup()
	release := make(chan struct{})
	wantErr := Errf(KindNetwork, "down")
	fn := func() ([]byte, error) {
		<-release
		return nil, wantErr
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := g.Do("GET /x", fn)
			errs <- err
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		if err := <-errs; !IsKind(err, KindNetwork) {
			t.Errorf("caller %d error = %v, want shared network error", i, err)
		}
	}
}

func TestFingerprintNormalizesQueryOrder(t *testing.T) {
	a := url.Values{}
	a.Set("q", "bob")
	a.Set("limit", "10")
	b := url.Values{}
	b.Set("limit", "10")
	b.Set("q", "bob")

	if Fingerprint("GET", "/users/search", a) != Fingerprint("GET", "/users/search", b) {
		t.Error("same parameters in different order produced different fingerprints")
	}

	c := url.Values{}
	c.Set("q", "bob")
	c.Set("limit", "20")
	if Fingerprint("GET", "/users/search", a) == Fingerprint("GET", "/users/search", c) {
		t.Error("different limits collapsed to one fingerprint")
	}
	if Fingerprint("GET", "/x", nil) == Fingerprint("POST", "/x", nil) {
		t.Error("method not part of the fingerprint")
	}
}
