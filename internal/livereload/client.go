package livereload

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
)

// HMRHandlers receive decoded HMR messages. OnUpdate must finish applying
// the assets before the next message is read.
type HMRHandlers struct {
	OnUpdate func(ctx context.Context, assets []Asset) error
	OnError  func(diags []Diagnostic)
}

// Client is one connection to a live-update socket. It never reconnects.
type Client struct {
	url   string
	kind  string
	state atomic.Int32

	ws        *websocket.Conn
	closing   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	onState func(from, to State)
}

// ClientOption configures a client.
type ClientOption func(*Client)

// WithStateObserver registers fn for every state transition.
func WithStateObserver(fn func(from, to State)) ClientOption {
	return func(c *Client) { c.onState = fn }
}

// State returns the current state.
func (c *Client) State() State { return State(c.state.Load()) }

// Done is closed when the read loop has finished.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) transition(to State) bool {
	for {
		from := c.State()
		if !CanTransition(from, to) {
			return false
		}
		if c.state.CompareAndSwap(int32(from), int32(to)) {
			log.Debug().Str("socket", c.kind).Str("from", from.String()).Str("to", to.String()).Msg("Client state changed")
			if c.onState != nil {
				c.onState(from, to)
			}
			return true
		}
	}
}

func dial(ctx context.Context, url, kind string, opts []ClientOption) (*Client, error) {
	c := &Client{url: url, kind: kind, done: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		log.Warn().Err(err).Str("socket", kind).Str("url", url).Msg("Live-update connection failed")
		c.transition(StateErroring)
		c.transition(StateClosed)
		close(c.done)
		return c, domain.NewAppErrorWithCause(domain.ErrTransport, "Failed to connect", 503, err, map[string]any{"url": url})
	}
	c.ws = ws
	c.transition(StateOpen)
	log.Info().Str("socket", kind).Str("url", url).Msg("Live-update connection open")
	return c, nil
}

// DialHMR connects to the HMR channel and handles messages in arrival
// order until the connection ends. An error message is logged and passed
// to OnError without applying any change.
func DialHMR(ctx context.Context, url string, handlers HMRHandlers, opts ...ClientOption) (*Client, error) {
	c, err := dial(ctx, url, "hmr", opts)
	if err != nil {
		return c, err
	}
	go c.readLoop(ctx, func(data []byte) {
		msg, err := DecodeHMRMessage(data)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring HMR frame")
			return
		}
		switch msg.Type {
		case MessageUpdate:
			if handlers.OnUpdate == nil {
				return
			}
			if err := handlers.OnUpdate(ctx, msg.Assets); err != nil {
				log.Error().Err(err).Int("assets", len(msg.Assets)).Msg("Failed to apply update")
			}
		case MessageError:
			for _, d := range msg.Diagnostics.ANSI {
				log.Warn().Msg("[crxkit] " + d.Render())
			}
			if handlers.OnError != nil {
				handlers.OnError(msg.Diagnostics.ANSI)
			}
		}
	})
	return c, nil
}

// DialBuild connects to the build-phase channel and calls onEvent with
// every phase tag.
func DialBuild(ctx context.Context, url string, onEvent func(event string), opts ...ClientOption) (*Client, error) {
	c, err := dial(ctx, url, "build", opts)
	if err != nil {
		return c, err
	}
	go c.readLoop(ctx, func(data []byte) {
		msg, err := DecodeBuildMessage(data)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring build frame")
			return
		}
		if onEvent != nil {
			onEvent(msg.Type)
		}
	})
	return c, nil
}

func (c *Client) readLoop(ctx context.Context, handle func([]byte)) {
	defer close(c.done)
	defer c.transition(StateClosed)

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("socket", c.kind).Msg("Live-update transport error")
				c.transition(StateErroring)
			}
			log.Info().Str("socket", c.kind).Msg("Live-update connection closed")
			return
		}
		handle(data)
	}
}

// Close ends the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		if c.ws == nil {
			return
		}
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.ws.Close()
	})
	return err
}
