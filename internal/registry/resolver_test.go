package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/api"
)

const (
	outputA = "https://app.testim.io/#/project/coco/branch/master/test/1234567A?result-id=1234567A"
	outputB = "https://app.testim.io/#/project/coco/branch/master/test/1234567B?result-id=1234567B"
)

type fakeFetcher struct {
	calls   int32
	started chan struct{}
	release chan struct{}
	tests   []TestRecord
	err     error
	ctxErr  error
}

func (f *fakeFetcher) FetchTests(ctx context.Context, projectID, branch, token string) ([]TestRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	f.ctxErr = ctx.Err()
	return f.tests, f.err
}

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   Locator
		found  bool
	}{
		{name: "registry url", output: outputA, want: Locator{ProjectID: "coco", Branch: "master"}, found: true},
		{name: "plain output", output: "some stdout", found: false},
		{name: "missing test segment", output: "https://app.testim.io/#/project/coco/branch/master", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ParseLocator(tt.output)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "1234567A", TestID(outputA))
	assert.Equal(t, "", TestID("no id here"))
}

func TestStatusesFor(t *testing.T) {
	st := Statuses{"1234567B": StatusEvaluating}
	assert.Equal(t, StatusEvaluating, st.For(api.Case{Output: outputB}))
	assert.Equal(t, StatusDraft, st.For(api.Case{Output: outputA}))
	assert.Equal(t, StatusDraft, st.For(api.Case{Output: ""}))
}

func TestResolverSkipsLookup(t *testing.T) {
	tests := []struct {
		name   string
		cases  []api.Case
		tokens ProjectTokenDictionary
	}{
		{
			name:   "no locator",
			cases:  []api.Case{{Name: "a", Output: "stdout"}},
			tokens: ProjectTokenDictionary{"coco": "secret"},
		},
		{
			name:   "no credential",
			cases:  []api.Case{{Name: "a", Output: outputA}},
			tokens: ProjectTokenDictionary{"other": "secret"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{}
			got, err := NewResolver(f, tt.tokens, nil).Resolve(context.Background(), tt.cases)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
		})
	}
}

func TestResolverMemoizesPerBranch(t *testing.T) {
	f := &fakeFetcher{tests: []TestRecord{{ID: "1234567B", TestStatus: StatusEvaluating}}}
	r := NewResolver(f, ProjectTokenDictionary{"coco": "secret"}, NewCache())
	cases := []api.Case{{Name: "plain"}, {Name: "a", Output: outputA}, {Name: "b", Output: outputB}}

	for i := 0; i < 3; i++ {
		got, err := r.Resolve(context.Background(), cases)
		require.NoError(t, err)
		assert.Equal(t, StatusEvaluating, got.For(cases[2]))
		assert.Equal(t, StatusDraft, got.For(cases[1]))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))

	other := []api.Case{{Name: "c", Output: "https://app.testim.io/#/project/coco/branch/develop/test/X1?result-id=1"}}
	_, err := r.Resolve(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
}

func TestResolverConcurrentLookupsCoalesce(t *testing.T) {
	f := &fakeFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		tests:   []TestRecord{{ID: "1234567A", TestStatus: StatusQuarantine}},
	}
	r := NewResolver(f, ProjectTokenDictionary{"coco": "secret"}, NewCache())
	cases := []api.Case{{Name: "a", Output: outputA}}

	var wg sync.WaitGroup
	results := make([]Statuses, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = r.Resolve(context.Background(), cases)
	}()
	// the second lookup starts while the first one is in flight
	<-f.started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = r.Resolve(context.Background(), cases)
	}()
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, StatusQuarantine, results[i].For(cases[0]))
	}
}

func TestResolverSharesFailure(t *testing.T) {
	lookupErr := &RemoteLookupError{ProjectID: "coco", Branch: "master", Message: "boom"}
	f := &fakeFetcher{err: lookupErr}
	r := NewResolver(f, ProjectTokenDictionary{"coco": "secret"}, NewCache())
	cases := []api.Case{{Name: "a", Output: outputA}}

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), cases)
		assert.ErrorIs(t, err, lookupErr, fmt.Sprintf("attempt %d", i))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestResolverCancelledCallerDoesNotPoisonCache(t *testing.T) {
	f := &fakeFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		tests:   []TestRecord{{ID: "1234567A", TestStatus: StatusActive}},
	}
	r := NewResolver(f, ProjectTokenDictionary{"coco": "secret"}, NewCache())
	cases := []api.Case{{Name: "a", Output: outputA}}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, cases)
		errc <- err
	}()
	<-f.started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(f.release)
	got, err := r.Resolve(context.Background(), cases)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.For(cases[0]))
	assert.NoError(t, f.ctxErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestParseProjectTokens(t *testing.T) {
	got := ParseProjectTokens([]string{
		"coco:secret",
		" spaced : token ",
		"missing-separator",
		":no-key",
		"no-value:",
		"with:colon:inside",
	})
	assert.Equal(t, ProjectTokenDictionary{
		"coco":   "secret",
		"spaced": "token",
		"with":   "colon:inside",
	}, got)
}
