package livereload

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, name string) (*Server, string) {
	t.Helper()
	s := NewServer(ServerOptions{Name: name, PingInterval: time.Second, WriteWait: time.Second})
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Hub().CloseAll()
		ts.Close()
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHMR_UpdateThenErrorKeepsUpdate(t *testing.T) {
	s, url := startTestServer(t, "hmr")

	table := NewModuleTable()
	var mu sync.Mutex
	var errorsSeen [][]Diagnostic
	client, err := DialHMR(context.Background(), url, HMRHandlers{
		OnUpdate: table.Apply,
		OnError: func(d []Diagnostic) {
			mu.Lock()
			errorsSeen = append(errorsSeen, d)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, StateOpen, client.State())
	waitForClients(t, s.Hub(), 1)

	n, err := s.Hub().Broadcast(NewUpdateMessage([]Asset{{ID: "popup.ts", Output: "v1"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.Hub().Broadcast(NewErrorMessage([]Diagnostic{{Message: "Unexpected token", Hints: []string{"check syntax"}}}))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errorsSeen) == 1
	}, 2*time.Second, 10*time.Millisecond)

	asset, ok := table.Current("popup.ts")
	require.True(t, ok)
	assert.Equal(t, "v1", asset.Output)
	assert.Equal(t, 1, table.Updates())
	assert.Equal(t, "Unexpected token", errorsSeen[0][0].Message)
}

func TestHMR_MessagesHandledInOrder(t *testing.T) {
	s, url := startTestServer(t, "hmr")

	var mu sync.Mutex
	var order []string
	client, err := DialHMR(context.Background(), url, HMRHandlers{
		OnUpdate: func(_ context.Context, assets []Asset) error {
			// slow handler: the next frame must wait for this one
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, assets[0].ID)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)
	defer client.Close()
	waitForClients(t, s.Hub(), 1)

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := s.Hub().Broadcast(NewUpdateMessage([]Asset{{ID: id}}))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 4
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestBuildClient_ReceivesEvents(t *testing.T) {
	s, url := startTestServer(t, "build")

	events := make(chan string, 4)
	client, err := DialBuild(context.Background(), url, func(e string) { events <- e })
	require.NoError(t, err)
	defer client.Close()
	waitForClients(t, s.Hub(), 1)

	_, err = s.Hub().Broadcast(BuildMessage{Type: PhaseBuildReady})
	require.NoError(t, err)
	_, err = s.Hub().Broadcast(BuildMessage{Type: PhaseContentScriptChanged})
	require.NoError(t, err)

	assert.Equal(t, PhaseBuildReady, <-events)
	assert.Equal(t, PhaseContentScriptChanged, <-events)
}

func TestClient_ServerGoesAway(t *testing.T) {
	s, url := startTestServer(t, "build")

	var mu sync.Mutex
	var transitions []State
	client, err := DialBuild(context.Background(), url, nil, WithStateObserver(func(_, to State) {
		mu.Lock()
		transitions = append(transitions, to)
		mu.Unlock()
	}))
	require.NoError(t, err)
	waitForClients(t, s.Hub(), 1)

	s.Hub().CloseAll()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice the closed connection")
	}
	assert.Equal(t, StateClosed, client.State())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, transitions)
	assert.Equal(t, StateClosed, transitions[len(transitions)-1])
	assert.NoError(t, client.Close())
}

func TestClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client, err := DialHMR(context.Background(), "ws://"+addr, HMRHandlers{})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrTransport))
	assert.Equal(t, StateClosed, client.State())
	<-client.Done()
}

func TestClient_ContextCancelCloses(t *testing.T) {
	s, url := startTestServer(t, "hmr")

	ctx, cancel := context.WithCancel(context.Background())
	client, err := DialHMR(ctx, url, HMRHandlers{})
	require.NoError(t, err)
	waitForClients(t, s.Hub(), 1)

	cancel()
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
	assert.Equal(t, StateClosed, client.State())
	waitForClients(t, s.Hub(), 0)
}

func freePortPair(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port - 1
}

func TestBuildSocket_Modes(t *testing.T) {
	disabled, err := NewBuildSocket(BuildSocketOptions{Mode: "production"})
	require.NoError(t, err)
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Start())
	assert.Zero(t, disabled.Broadcast(PhaseBuildReady))
	assert.Empty(t, disabled.Addr())
	assert.NoError(t, disabled.Close(context.Background()))
	assert.Equal(t, domain.HealthStatusHealthy, disabled.HealthCheck(context.Background()).Status)

	_, err = NewBuildSocket(BuildSocketOptions{Mode: ModeDevelopment})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrPortMissing))
	assert.Contains(t, err.Error(), "HMR port is not provided")

	_, err = NewBuildSocket(BuildSocketOptions{Mode: ModeDevelopment, HMRPort: 65535})
	assert.True(t, domain.IsConfigError(err))
}

func TestBuildSocket_ListensOnNextPort(t *testing.T) {
	hmrPort := freePortPair(t)
	b, err := NewBuildSocket(BuildSocketOptions{Host: "127.0.0.1", HMRPort: hmrPort, Mode: ModeDevelopment})
	require.NoError(t, err)
	require.NoError(t, b.Start())
	defer b.Close(context.Background())

	_, port, err := net.SplitHostPort(b.Addr())
	require.NoError(t, err)
	assert.Equal(t, SocketURL("127.0.0.1", hmrPort+1, false), "ws://127.0.0.1:"+port)

	assert.Zero(t, b.Broadcast(PhaseBuildReady))

	events := make(chan string, 1)
	client, err := DialBuild(context.Background(), SocketURL("127.0.0.1", hmrPort+1, false), func(e string) { events <- e })
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, b.Broadcast(PhaseBuildReady))
	assert.Equal(t, PhaseBuildReady, <-events)
	assert.Len(t, b.Clients(), 1)
	assert.Equal(t, domain.HealthStatusHealthy, b.HealthCheck(context.Background()).Status)
}

func TestHMRServer_Publish(t *testing.T) {
	h := NewHMRServer(HMRServerOptions{Host: "127.0.0.1", Port: 0})
	assert.Equal(t, domain.HealthStatusUnhealthy, h.HealthCheck(context.Background()).Status)
	require.NoError(t, h.Start())
	defer h.Close(context.Background())

	table := NewModuleTable()
	diags := make(chan []Diagnostic, 1)
	client, err := DialHMR(context.Background(), "ws://"+h.Addr(), HMRHandlers{
		OnUpdate: table.Apply,
		OnError:  func(d []Diagnostic) { diags <- d },
	})
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.PublishUpdate([]Asset{{ID: "background.ts"}}))
	assert.Equal(t, 1, h.PublishError([]Diagnostic{{Message: "boom"}}))

	got := <-diags
	assert.Equal(t, "boom", got[0].Message)
	_, ok := table.Current("background.ts")
	assert.True(t, ok)
}
