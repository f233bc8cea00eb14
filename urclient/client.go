package urclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-ur/dashboard"
	"github.com/arloliu/go-ur/internal/task"
	"github.com/arloliu/go-ur/logger"
	"github.com/arloliu/go-ur/rtde"
)

// rtdeChannel is the capability boundary the RTDE implementation must
// satisfy. The byte-level rtde.Conn is the default backing; a library-backed
// or fake implementation can substitute for it without touching the client.
type rtdeChannel interface {
	Handshake() error
	Receive(lenBuf []byte) (*rtde.DataPackage, error)
	WriteSpeedFraction(fraction float64) error
	OutputRecipe() *rtde.Recipe
	SpeedControlSupported() bool
	Pause() error
	Close() error
}

// Status reports per-channel connectivity. The command channel decides
// Connected; the other three channels degrade independently.
type Status struct {
	Connected             bool
	Host                  string
	FeedbackConnected     bool
	DashboardConnected    bool
	RTDEConnected         bool
	SpeedControlSupported bool
}

// Client is one connection session to a robot controller. Create it with
// NewClient, then drive it through Connect/Disconnect. All methods are safe
// for concurrent use.
type Client struct {
	cfg    *Config
	logger logger.Logger
	tasks  *task.Manager

	// mu serializes Connect/Disconnect and guards the channel handles.
	// Background tasks never take it; they capture their handles at start,
	// which keeps Disconnect free to hold it across the task-drain wait.
	mu       sync.Mutex
	host     string
	cmdConn  net.Conn
	fbConn   net.Conn
	dashConn *dashboard.Conn
	rtdeConn rtdeChannel

	cmdUp  atomic.Bool
	fbUp   atomic.Bool
	dashUp atomic.Bool
	rtdeUp atomic.Bool

	state      *stateStore
	feed       *broadcaster
	frameCount atomic.Uint64 // feedback frames seen, for decimation
}

// NewClient creates a Client with the given configuration. Background tasks
// are children of ctx; canceling it tears the whole client down.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("urclient: config is nil")
	}

	c := &Client{
		cfg:    cfg,
		logger: cfg.logger,
		tasks:  task.NewManager(ctx, cfg.logger),
		state:  newStateStore(),
	}
	c.feed = newBroadcaster(c.state, cfg.broadcastInterval, cfg.logger)

	return c, nil
}

// Connect opens the command channel to host and, independently, the
// feedback, dashboard and RTDE channels. Only the command channel is
// required: its dial failure fails the whole operation, while each of the
// other three degrades to "unavailable" without affecting the rest. RTDE
// counts as available only after a successful handshake.
func (c *Client) Connect(host string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmdUp.Load() {
		return ErrAlreadyConnected
	}

	cmdConn, err := net.DialTimeout("tcp", c.addr(host, c.cfg.commandPort), c.cfg.connectTimeout)
	if err != nil {
		return fmt.Errorf("dial command port: %w", err)
	}

	c.host = host
	c.cmdConn = cmdConn
	c.cmdUp.Store(true)
	c.logger.Info("command channel connected", "host", host, "port", c.cfg.commandPort)

	c.openFeedback(host)
	c.openDashboard(host)
	c.openRTDE(host)

	c.startTasks()

	return nil
}

func (c *Client) addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Client) openFeedback(host string) {
	conn, err := net.DialTimeout("tcp", c.addr(host, c.cfg.feedbackPort), c.cfg.channelTimeout)
	if err != nil {
		c.logger.Warn("feedback channel unavailable", "error", err)
		return
	}

	c.fbConn = conn
	c.fbUp.Store(true)
	c.logger.Info("feedback channel connected", "port", c.cfg.feedbackPort)
}

func (c *Client) openDashboard(host string) {
	conn, err := net.DialTimeout("tcp", c.addr(host, c.cfg.dashboardPort), c.cfg.channelTimeout)
	if err != nil {
		c.logger.Warn("dashboard channel unavailable", "error", err)
		return
	}

	c.dashConn = dashboard.NewConn(conn, c.logger)
	c.dashConn.SetTimeout(c.cfg.dashboardTimeout)
	c.dashConn.ConsumeBanner()
	c.dashUp.Store(true)
	c.logger.Info("dashboard channel connected", "port", c.cfg.dashboardPort)
}

func (c *Client) openRTDE(host string) {
	conn, err := net.DialTimeout("tcp", c.addr(host, c.cfg.rtdePort), c.cfg.channelTimeout)
	if err != nil {
		c.logger.Warn("rtde channel unavailable", "error", err)
		return
	}

	rc := rtde.NewConn(conn, c.logger)
	if err := rc.Handshake(); err != nil {
		// Handshake failure tears down only the RTDE socket.
		c.logger.Warn("rtde handshake failed", "error", err)
		_ = rc.Close()

		return
	}

	c.rtdeConn = rc
	c.rtdeUp.Store(true)
}

// startTasks launches the background listeners for the channels that came
// up. Each task captures its channel handle here, so it never needs c.mu.
// The caller must hold c.mu.
func (c *Client) startTasks() {
	if c.fbUp.Load() {
		fbConn := c.fbConn
		err := c.tasks.StartReceiver("feedbackReceiver", 4,
			func(lenBuf []byte) bool { return c.feedbackTask(fbConn, lenBuf) },
			func() { c.fbUp.Store(false) },
		)
		if err != nil {
			c.logger.Error("failed to start feedback receiver", "error", err)
			c.fbUp.Store(false)
		}
	}

	if c.rtdeUp.Load() {
		rtdeConn := c.rtdeConn
		err := c.tasks.StartReceiver("rtdeReceiver", 2,
			func(lenBuf []byte) bool { return c.rtdeTask(rtdeConn, lenBuf) },
			func() { c.rtdeUp.Store(false) },
		)
		if err != nil {
			c.logger.Error("failed to start rtde receiver", "error", err)
			c.rtdeUp.Store(false)
		}
	}

	if c.dashUp.Load() || c.fbUp.Load() {
		dash := c.dashConn
		err := c.tasks.StartInterval("statusPoller",
			func() bool { return c.pollStatus(dash) },
			c.cfg.pollInterval, true,
		)
		if err != nil {
			c.logger.Error("failed to start status poller", "error", err)
		}
	}
}

// Disconnect cancels the background tasks, waits for each to observe the
// cancellation and exit, then closes the sockets and clears the snapshot.
// The cancel-await-close order avoids use-after-close races in the receive
// loops. Disconnect is idempotent and safe to call when never connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tasks.Stop()
	c.tasks.Wait()

	if c.rtdeConn != nil {
		// Best-effort courtesy so the controller stops streaming.
		if err := c.rtdeConn.Pause(); err != nil {
			c.logger.Debug("rtde pause on disconnect failed", "error", err)
		}
		_ = c.rtdeConn.Close()
		c.rtdeConn = nil
	}

	if c.dashConn != nil {
		_ = c.dashConn.Close()
		c.dashConn = nil
	}

	if c.fbConn != nil {
		_ = c.fbConn.Close()
		c.fbConn = nil
	}

	if c.cmdConn != nil {
		_ = c.cmdConn.Close()
		c.cmdConn = nil
	}

	c.cmdUp.Store(false)
	c.fbUp.Store(false)
	c.dashUp.Store(false)
	c.rtdeUp.Store(false)

	c.state.Reset()
	c.frameCount.Store(0)
	c.host = ""

	c.logger.Info("disconnected")
}

// IsConnected reports whether the command channel is open. The auxiliary
// channels degrade independently and are reported via Status.
func (c *Client) IsConnected() bool {
	return c.cmdUp.Load()
}

// Status returns the per-channel connectivity report.
func (c *Client) Status() Status {
	c.mu.Lock()
	host := c.host
	speedControl := c.rtdeConn != nil && c.rtdeConn.SpeedControlSupported()
	c.mu.Unlock()

	return Status{
		Connected:             c.cmdUp.Load(),
		Host:                  host,
		FeedbackConnected:     c.fbUp.Load(),
		DashboardConnected:    c.dashUp.Load(),
		RTDEConnected:         c.rtdeUp.Load(),
		SpeedControlSupported: speedControl && c.rtdeUp.Load(),
	}
}

// ReadState returns a copy of the latest snapshot. The boolean is false when
// the client is disconnected; while connected but before any telemetry has
// arrived, a defaulted snapshot is returned.
func (c *Client) ReadState() (Snapshot, bool) {
	if !c.IsConnected() {
		return Snapshot{}, false
	}

	snap := c.state.Snapshot()
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	return snap, true
}

// SendDashboardCommand sends one raw dashboard command and returns the raw
// reply line, without classification.
func (c *Client) SendDashboardCommand(command string) (string, error) {
	dash := c.dashboard()
	if dash == nil {
		return "", ErrDashboardUnavailable
	}

	reply, err := dash.Exchange(command)
	if err != nil {
		c.dashUp.Store(false)
		return "", err
	}

	return reply, nil
}

// dashboard returns the dashboard connection, or nil when the channel is
// down.
func (c *Client) dashboard() *dashboard.Conn {
	if !c.dashUp.Load() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dashConn
}

// Subscribe attaches a snapshot feed. See Subscription for consumption
// rules.
func (c *Client) Subscribe() *Subscription {
	return c.feed.Subscribe()
}

// Unsubscribe detaches a feed previously returned by Subscribe.
func (c *Client) Unsubscribe(sub *Subscription) {
	c.feed.Unsubscribe(sub)
}
