package qrc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Frame and timing constants.
const (
	// frameDelimiter terminates every QRC message on the wire.
	frameDelimiter = 0x00

	// defaultResponseTimeout applies when Options.ResponseTimeout is zero.
	defaultResponseTimeout = 5 * time.Second

	// defaultKeepaliveInterval keeps the session alive; the core drops
	// connections after 60 seconds of silence.
	defaultKeepaliveInterval = 30 * time.Second

	// maxFrameSize bounds a single QRC frame. Component.GetControls on a
	// large design returns a few hundred KB; 8 MB leaves ample headroom.
	maxFrameSize = 8 << 20
)

// Logger is the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NotificationHandler receives unsolicited messages pushed by the core
// (EngineStatus, auto-poll change deliveries). Handlers run on the read
// loop goroutine and must not block.
type NotificationHandler func(method string, params json.RawMessage)

// Options configures a Client.
type Options struct {
	// Address is the host:port of the core's QRC listener.
	Address string

	// ConnectTimeout bounds the TCP dial. Zero means no limit.
	ConnectTimeout time.Duration

	// ResponseTimeout bounds each request's wait for a response.
	// Zero selects the 5 second default.
	ResponseTimeout time.Duration

	// KeepaliveInterval is the NoOp keepalive period. Zero selects the
	// 30 second default; negative disables the keepalive.
	KeepaliveInterval time.Duration

	// OnNotification is invoked for unsolicited core messages. Optional.
	OnNotification NotificationHandler

	// Logger is optional; a no-op logger is used when nil.
	Logger Logger
}

// Client is a QRC JSON-RPC client bound to a single connection.
//
// Thread Safety: all methods are safe for concurrent use. Requests from
// multiple goroutines are multiplexed over the one connection and matched
// back to callers by JSON-RPC id.
type Client struct {
	conn   net.Conn
	logger Logger

	responseTimeout time.Duration

	// nextID generates JSON-RPC request ids.
	nextID atomic.Uint64

	// writeMu serialises frame writes.
	writeMu sync.Mutex

	// pending maps request id to the waiting caller's channel.
	pending   map[uint64]chan *inbound
	pendingMu sync.Mutex

	onNotification NotificationHandler

	// Shutdown coordination
	done      chan struct{}
	closeOnce sync.Once

	// Wire counters for observability.
	txCount atomic.Uint64
	rxCount atomic.Uint64
}

// outbound is the JSON-RPC request envelope.
type outbound struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// inbound is the decoded wire envelope for both responses and notifications.
type inbound struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Dial connects to a core's QRC listener and returns a ready client.
//
// Parameters:
//   - ctx: Context for dial cancellation
//   - opts: Client options; Address is required
//
// Returns:
//   - *Client: Connected client with read loop and keepalive running
//   - error: If the dial fails
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("qrc: address is required")
	}

	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	return NewClient(conn, opts), nil
}

// NewClient wraps an established connection. Used directly in tests with
// net.Pipe; production callers use Dial.
func NewClient(conn net.Conn, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	responseTimeout := opts.ResponseTimeout
	if responseTimeout <= 0 {
		responseTimeout = defaultResponseTimeout
	}

	c := &Client{
		conn:            conn,
		logger:          logger,
		responseTimeout: responseTimeout,
		pending:         make(map[uint64]chan *inbound),
		onNotification:  opts.OnNotification,
		done:            make(chan struct{}),
	}

	go c.readLoop()

	keepalive := opts.KeepaliveInterval
	if keepalive == 0 {
		keepalive = defaultKeepaliveInterval
	}
	if keepalive > 0 {
		go c.keepaliveLoop(keepalive)
	}

	return c
}

// Send issues a QRC request and waits for the matching response.
//
// Methods outside the QRC vocabulary fail with ErrMethodUnsupported before
// any bytes are written. The legacy StatusGet alias is accepted and
// normalised to Status.Get.
//
// Parameters:
//   - ctx: Context for cancellation; also bounded by the response timeout
//   - method: One of the Method* constants
//   - params: Request parameters, marshalled as-is (may be nil)
//
// Returns:
//   - json.RawMessage: The raw result field of the response
//   - error: ErrMethodUnsupported, ErrTimeout, ErrConnectionClosed, a
//     *RPCError from the core, or a write error
func (c *Client) Send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !MethodSupported(method) {
		return nil, fmt.Errorf("%w: %q", ErrMethodUnsupported, method)
	}
	method = normalizeMethod(method)

	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan *inbound, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.writeFrame(outbound{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}); err != nil {
		return nil, err
	}
	c.txCount.Add(1)

	timer := time.NewTimer(c.responseTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, method, c.responseTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("qrc: %s: %w", method, ctx.Err())
	case <-c.done:
		return nil, ErrConnectionClosed
	}
}

// writeFrame marshals and writes a single NUL-terminated frame.
func (c *Client) writeFrame(msg outbound) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("qrc: marshalling request: %w", err)
	}
	payload = append(payload, frameDelimiter)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.conn.Write(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return nil
}

// errFrameTooLarge signals readFrame hit the size bound mid-frame.
var errFrameTooLarge = errors.New("qrc: frame exceeds size limit")

// readFrame reads one NUL-terminated frame, enforcing maxFrameSize while
// the frame is still streaming in rather than after it has been buffered.
func readFrame(reader *bufio.Reader) ([]byte, error) {
	var frame []byte
	for {
		chunk, err := reader.ReadSlice(frameDelimiter)
		frame = append(frame, chunk...)
		if err == nil {
			return frame[:len(frame)-1], nil
		}
		if err != bufio.ErrBufferFull {
			return nil, err
		}
		if len(frame) > maxFrameSize {
			return nil, errFrameTooLarge
		}
	}
}

// skipFrame discards input up to and including the next delimiter.
func skipFrame(reader *bufio.Reader) error {
	for {
		_, err := reader.ReadSlice(frameDelimiter)
		if err == nil {
			return nil
		}
		if err != bufio.ErrBufferFull {
			return err
		}
	}
}

// readLoop reads frames until the connection closes, dispatching responses
// to waiting callers and notifications to the handler.
func (c *Client) readLoop() {
	reader := bufio.NewReader(c.conn)

	for {
		frame, err := readFrame(reader)
		if err != nil {
			if errors.Is(err, errFrameTooLarge) {
				c.logger.Warn("oversized QRC frame dropped", "limit", maxFrameSize)
				if skipFrame(reader) != nil {
					c.shutdown()
					return
				}
				continue
			}
			c.shutdown()
			return
		}
		if len(frame) == 0 {
			continue
		}

		var msg inbound
		if err := json.Unmarshal(frame, &msg); err != nil {
			c.logger.Warn("unparseable QRC frame dropped", "error", err)
			continue
		}
		c.rxCount.Add(1)

		switch {
		case msg.ID != nil:
			c.dispatchResponse(&msg)
		case msg.Method != "":
			if c.onNotification != nil {
				c.onNotification(msg.Method, msg.Params)
			}
		default:
			c.logger.Debug("QRC frame with neither id nor method ignored")
		}
	}
}

// dispatchResponse hands a response to the caller waiting on its id.
// Responses for ids with no waiter (late arrivals after timeout) are dropped.
func (c *Client) dispatchResponse(msg *inbound) {
	c.pendingMu.Lock()
	ch, ok := c.pending[*msg.ID]
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("late QRC response discarded", "id", *msg.ID)
		return
	}

	select {
	case ch <- msg:
	default:
	}
}

// keepaliveLoop sends NoOp frames to hold the session open.
func (c *Client) keepaliveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.writeFrame(outbound{
				JSONRPC: "2.0",
				ID:      c.nextID.Add(1),
				Method:  MethodNoOp,
			}); err != nil {
				c.logger.Warn("keepalive write failed", "error", err)
				return
			}
		}
	}
}

// shutdown tears down the client once. In-flight Send calls fail with
// ErrConnectionClosed via the done channel.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		//nolint:errcheck // Close on an already-failed conn is best effort
		c.conn.Close()
	})
}

// Close terminates the connection. Safe to call multiple times.
func (c *Client) Close() error {
	c.shutdown()
	return nil
}

// IsConnected reports whether the client can still issue requests.
func (c *Client) IsConnected() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Stats contains wire counters for the metrics endpoint.
type Stats struct {
	RequestsTx uint64
	FramesRx   uint64
}

// GetStats returns current wire counters.
func (c *Client) GetStats() Stats {
	return Stats{
		RequestsTx: c.txCount.Load(),
		FramesRx:   c.rxCount.Load(),
	}
}
