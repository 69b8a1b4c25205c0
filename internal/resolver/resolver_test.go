package resolver

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/crxkit/crxkit/internal/cache"
	"github.com/crxkit/crxkit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStrategy is a mock implementation of Strategy
type MockStrategy struct {
	mock.Mock
	name string
}

func (m *MockStrategy) Name() string { return m.name }

func (m *MockStrategy) Resolve(ctx context.Context, req Request) (Result, bool, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Result), args.Bool(1), args.Error(2)
}

func TestChain_FirstHandledWins(t *testing.T) {
	first := &MockStrategy{name: "first"}
	second := &MockStrategy{name: "second"}
	third := &MockStrategy{name: "third"}
	req := Request{Specifier: "~/x"}

	first.On("Resolve", mock.Anything, req).Return(Result{}, false, nil)
	second.On("Resolve", mock.Anything, req).Return(Result{Path: "/src/x.ts"}, true, nil)

	chain := NewChain(first, nil, second, third)
	assert.Equal(t, []string{"first", "second", "third"}, chain.Strategies())

	res, handled, err := chain.Resolve(context.Background(), req)
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "/src/x.ts", res.Path)
	assert.Equal(t, "second", res.Strategy)

	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestChain_ErrorStops(t *testing.T) {
	failing := &MockStrategy{name: "failing"}
	after := &MockStrategy{name: "after"}
	req := Request{Specifier: "~/gone.ts"}

	failing.On("Resolve", mock.Anything, req).Return(Result{}, false, domain.NewResolutionError(req.Specifier, "/src/gone.ts", nil))

	_, handled, err := NewChain(failing, after).Resolve(context.Background(), req)
	assert.False(t, handled)
	assert.True(t, domain.IsResolutionFailure(err))
	after.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestChain_AllDecline(t *testing.T) {
	s := &MockStrategy{name: "only"}
	s.On("Resolve", mock.Anything, mock.Anything).Return(Result{}, false, nil)

	_, handled, err := NewChain(s).Resolve(context.Background(), Request{Specifier: "react"})
	require.NoError(t, err)
	assert.False(t, handled)

	_, handled, err = NewChain().Resolve(context.Background(), Request{Specifier: "react"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestChain_Cancelled(t *testing.T) {
	s := &MockStrategy{name: "only"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewChain(s).Resolve(ctx, Request{Specifier: "x"})
	assert.True(t, domain.IsTimeout(err))
	s.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestChain_AliasThenHacks(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "util.ts")
	hacks := NewHackRegistry()
	require.NoError(t, hacks.Register("broken", fixed("/fixed.js")))

	chain := NewChain(newAlias(t, root), hacks)

	res, handled, err := chain.Resolve(context.Background(), Request{Specifier: "~/util"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "alias", res.Strategy)

	res, handled, err = chain.Resolve(context.Background(), Request{Specifier: "broken"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "hacks", res.Strategy)

	_, handled, err = chain.Resolve(context.Background(), Request{Specifier: "react"})
	require.NoError(t, err)
	assert.False(t, handled)
}

type countingFS struct {
	calls int
	files map[string]bool
}

type fakeInfo struct {
	fs.FileInfo
	dir bool
}

func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }

func (c *countingFS) Stat(name string) (fs.FileInfo, error) {
	c.calls++
	if isDir, ok := c.files[name]; ok {
		return fakeInfo{dir: isDir}, nil
	}
	return nil, os.ErrNotExist
}

func TestStatChecker_CachesAndInvalidates(t *testing.T) {
	fsys := &countingFS{files: map[string]bool{"/src/a.ts": false, "/src/dir": true}}
	checker := NewStatChecker(cache.NewStatCache(16), fsys)

	assert.True(t, checker.Stat("/src/a.ts").Regular())
	assert.True(t, checker.Stat("/src/a.ts").Regular())
	assert.Equal(t, 1, fsys.calls)

	assert.False(t, checker.Stat("/src/b.ts").Exists)
	assert.False(t, checker.Stat("/src/b.ts").Exists)
	assert.Equal(t, 2, fsys.calls)

	stat := checker.Stat("/src/dir")
	assert.True(t, stat.IsDir)
	assert.False(t, stat.Regular())

	fsys.files["/src/b.ts"] = false
	checker.Invalidate("/src/b.ts")
	assert.True(t, checker.Stat("/src/b.ts").Regular())

	checker.Invalidate("/src")
	checker.Stat("/src/a.ts")
	assert.Equal(t, 5, fsys.calls)

	assert.False(t, checker.Stat("/src/new").Exists)
	fsys.files["/src/new"] = true
	fsys.files["/src/new/c.ts"] = false
	checker.Invalidate("/src/new/c.ts")
	assert.True(t, checker.Stat("/src/new").IsDir)

	assert.Equal(t, domain.HealthStatusHealthy, checker.HealthCheck(context.Background()).Status)
	checker.Reset()
	assert.Zero(t, checker.Stats().Size)
}
