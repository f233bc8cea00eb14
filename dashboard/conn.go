package dashboard

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-ur/logger"
)

const (
	// defaultExchangeTimeout bounds one write+read round trip.
	defaultExchangeTimeout = 2 * time.Second
	// maxAttempts is the number of times a command is issued before a run of
	// stale replies is reported as a failure.
	maxAttempts = 3
	// retryBackoff is the pause between attempts, long enough for a stale
	// reply queued on the server side to drain.
	retryBackoff = 100 * time.Millisecond
)

// ErrClosed indicates the dashboard connection is gone; the channel must be
// re-established by a full reconnect cycle.
var ErrClosed = errors.New("dashboard: connection closed")

// ErrNoReply indicates every reply to a query was unusable (banners or
// stale lines). The transport itself is still healthy; the caller may keep
// the connection and try again later.
var ErrNoReply = errors.New("dashboard: no usable reply")

// Result carries the outcome of one classified dashboard request: whether it
// succeeded and the raw text of the reply that decided it, so callers can
// distinguish "not connected" from "command sent, device declined".
type Result struct {
	OK      bool
	Message string
}

// Conn is a dashboard protocol client over an established TCP connection.
// All methods serialize behind one mutex spanning write+read, because the
// protocol has no request/reply correlation.
type Conn struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	logger  logger.Logger
	timeout time.Duration
}

// NewConn wraps an established TCP connection to the dashboard port.
func NewConn(conn net.Conn, l logger.Logger) *Conn {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Conn{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		logger:  l,
		timeout: defaultExchangeTimeout,
	}
}

// SetTimeout overrides the per-round-trip deadline. Call it before the
// first exchange; it is not safe to change once the connection is shared.
func (c *Conn) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// ConsumeBanner reads and discards the greeting line the server sends on
// connect. Call it once right after dialing; a timeout is not an error since
// some proxied setups swallow the banner.
func (c *Conn) ConsumeBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.readLine()
	if err != nil {
		c.logger.Debug("no dashboard banner", "error", err)
		return
	}

	c.logger.Debug("dashboard banner", "text", line)
}

// Close closes the underlying TCP connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Exchange writes one newline-terminated command and reads exactly one reply
// line, without interpretation. It is the raw primitive behind Request and
// the queries.
func (c *Conn) Exchange(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exchange(command)
}

// Request issues a command and classifies the reply against the command's
// vocabulary. Stale replies are discarded and the command is reissued up to
// maxAttempts times with a short backoff; the last reply text is reported
// either way.
func (c *Conn) Request(cmd Command, command string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastReply string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reply, err := c.exchange(command)
		if err != nil {
			return Result{}, err
		}
		lastReply = reply

		switch Classify(cmd, reply) {
		case VerdictSuccess:
			return Result{OK: true, Message: reply}, nil

		case VerdictFailure:
			c.logger.Warn("dashboard command declined", "command", cmd.Name, "reply", reply)
			return Result{OK: false, Message: reply}, nil

		case VerdictStale:
			c.logger.Debug("stale dashboard reply, retrying",
				"command", cmd.Name, "reply", reply, "attempt", attempt)
			time.Sleep(retryBackoff)
		}
	}

	return Result{OK: false, Message: lastReply}, nil
}

// Query issues a read-only command and returns the first reply line that is
// not a repeated banner.
func (c *Conn) Query(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reply, err := c.exchange(command)
		if err != nil {
			return "", err
		}

		if !strings.Contains(strings.ToLower(reply), banner) {
			return reply, nil
		}

		c.logger.Debug("banner in place of query reply, retrying", "command", command, "attempt", attempt)
	}

	return "", fmt.Errorf("%w to %q", ErrNoReply, command)
}

// exchange performs one write+read round trip. The caller must hold c.mu.
func (c *Conn) exchange(command string) (string, error) {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", fmt.Errorf("set write deadline: %w", err)
	}

	if _, err := c.conn.Write([]byte(command)); err != nil {
		return "", fmt.Errorf("write dashboard command: %w", err)
	}

	return c.readLine()
}

func (c *Conn) readLine() (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", fmt.Errorf("set read deadline: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read dashboard reply: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
