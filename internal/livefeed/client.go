// Package livefeed is a websocket client for the chart_quote channel. It
// keeps one connection, multiplexes subscriptions by symbol and replays
// them after a reconnect.
package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// Channel is the only channel this client speaks.
const Channel = "chart_quote"

// ErrNotConnected is returned by sends while the socket is down.
var ErrNotConnected = errors.New("livefeed: not connected")

// Handler receives one streamed bar.
type Handler = func(symbol string, bar types.Bar)

type handler struct {
	id int64
	fn Handler
}

// Command is a client to server message.
type Command struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

// Message is a server push.
type Message struct {
	Channel string          `json:"channel"`
	Symbol  string          `json:"symbol"`
	Data    json.RawMessage `json:"data"`
}

// Status is the connection state exposed to the UI.
type Status struct {
	URL           string   `json:"url"`
	Connected     bool     `json:"connected"`
	Subscriptions []string `json:"subscriptions"`
	Reconnects    int64    `json:"reconnects"`
}

// Client is safe for concurrent use.
type Client struct {
	url          string
	minBackoff   time.Duration
	maxBackoff   time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex // guards conn and serialises writes
	conn net.Conn

	seq        atomic.Int64
	connected  atomic.Bool
	reconnects atomic.Int64

	subMu sync.RWMutex
	subs  map[string][]handler

	// OnStatus, when set before Run, observes connection changes.
	OnStatus func(Status)
}

// New returns a client for the given ws:// or wss:// URL.
func New(url string, minBackoff, maxBackoff time.Duration) *Client {
	if minBackoff <= 0 {
		minBackoff = 500 * time.Millisecond
	}
	if maxBackoff < minBackoff {
		maxBackoff = 30 * time.Second
	}
	return &Client{
		url:          url,
		minBackoff:   minBackoff,
		maxBackoff:   maxBackoff,
		writeTimeout: 5 * time.Second,
		subs:         make(map[string][]handler),
	}
}

// Connected reports whether the socket is up.
func (c *Client) Connected() bool { return c.connected.Load() }

// Status returns a point-in-time connection summary.
func (c *Client) Status() Status {
	c.subMu.RLock()
	symbols := make([]string, 0, len(c.subs))
	for s := range c.subs {
		symbols = append(symbols, s)
	}
	c.subMu.RUnlock()
	sort.Strings(symbols)
	return Status{URL: c.url, Connected: c.Connected(), Subscriptions: symbols, Reconnects: c.reconnects.Load()}
}

// Subscribe registers fn for symbol. The wire subscribe is sent only for
// the first handler of a symbol, and the unsubscribe only when the last one
// is cancelled. Cancel is idempotent.
func (c *Client) Subscribe(symbol string, fn Handler) (cancel func()) {
	id := c.seq.Add(1)
	c.subMu.Lock()
	first := len(c.subs[symbol]) == 0
	c.subs[symbol] = append(c.subs[symbol], handler{id: id, fn: fn})
	if first {
		c.sendGated(Command{Action: "subscribe", Channel: Channel, Symbol: symbol})
	}
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(symbol, id) })
	}
}

func (c *Client) unsubscribe(symbol string, id int64) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	hs := c.subs[symbol]
	for i, h := range hs {
		if h.id == id {
			hs = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) > 0 {
		c.subs[symbol] = hs
		return
	}
	delete(c.subs, symbol)
	c.sendGated(Command{Action: "unsubscribe", Channel: Channel, Symbol: symbol})
}

// sendGated writes cmd when connected. Offline changes are picked up by the
// replay on the next connect.
func (c *Client) sendGated(cmd Command) {
	if !c.Connected() {
		return
	}
	if err := c.send(cmd); err != nil {
		slog.Warn("live feed send failed", "action", cmd.Action, "symbol", cmd.Symbol, "error", err)
	}
}

func (c *Client) send(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("livefeed: marshal: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := wsutil.WriteClientText(c.conn, data); err != nil {
		return fmt.Errorf("livefeed: send: %w", err)
	}
	return nil
}

// Run connects and reads until ctx is done, reconnecting with exponential
// backoff. It always returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		conn, err := c.connect(ctx)
		if err == nil {
			backoff = c.minBackoff
			err = c.readLoop(ctx, conn)
			c.disconnect(conn)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.reconnects.Add(1)
		slog.Warn("live feed disconnected", "url", c.url, "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	slog.Debug("live feed connecting", "url", c.url)
	conn, _, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("livefeed: dial: %w", err)
	}
	// Publish the connection and replay under subMu so a concurrent
	// Subscribe is either replayed here or sent by itself, never both.
	c.subMu.Lock()
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	symbols := make([]string, 0, len(c.subs))
	for s := range c.subs {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	var replayErr error
	for _, s := range symbols {
		if replayErr = c.send(Command{Action: "subscribe", Channel: Channel, Symbol: s}); replayErr != nil {
			break
		}
	}
	c.subMu.Unlock()
	if replayErr != nil {
		c.disconnect(conn)
		return nil, replayErr
	}

	slog.Info("live feed connected", "url", c.url, "subscriptions", len(symbols))
	c.notify()
	return conn, nil
}

func (c *Client) disconnect(conn net.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
	if c.connected.Swap(false) {
		c.notify()
	}
}

func (c *Client) notify() {
	if c.OnStatus != nil {
		c.OnStatus(c.Status())
	}
}

// readLoop dispatches pushes until the connection fails or ctx is done.
func (c *Client) readLoop(ctx context.Context, conn net.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			return err
		}
		var msg Message
		if json.Unmarshal(data, &msg) != nil || msg.Channel != Channel || msg.Symbol == "" {
			continue
		}
		var bar types.Bar
		if err := json.Unmarshal(msg.Data, &bar); err != nil {
			slog.Debug("live feed bad payload", "symbol", msg.Symbol, "error", err)
			continue
		}
		c.dispatch(msg.Symbol, bar)
	}
}

func (c *Client) dispatch(symbol string, bar types.Bar) {
	c.subMu.RLock()
	hs := make([]handler, len(c.subs[symbol]))
	copy(hs, c.subs[symbol])
	c.subMu.RUnlock()
	for _, h := range hs {
		h.fn(symbol, bar)
	}
}
