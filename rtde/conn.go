package rtde

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-ur/logger"
)

const (
	// defaultHandshakeTimeout bounds each read/write of the handshake.
	defaultHandshakeTimeout = 2 * time.Second
	// defaultPollTimeout bounds one receive-loop read so the loop can observe
	// cancellation between frames.
	defaultPollTimeout = 500 * time.Millisecond
	// maxTextSkips is the number of interleaved text-message frames tolerated
	// while waiting for one handshake reply.
	maxTextSkips = 5
	// speedSliderMask selects the speed_slider_fraction input register.
	speedSliderMask uint32 = 1
)

// DataPackage is one decoded RTDE output sample. Values holds the doubles of
// the output recipe in negotiated field order; use Recipe.Index to locate a
// field.
type DataPackage struct {
	RecipeID byte
	Values   []float64
}

// Conn is the client side of one RTDE session over an established TCP
// connection. The caller dials the socket, calls Handshake exactly once, and
// then drives Receive from a single goroutine. WriteSpeedFraction may be
// called concurrently with Receive; concurrent writers are serialized.
type Conn struct {
	conn             net.Conn
	logger           logger.Logger
	handshakeTimeout time.Duration
	pollTimeout      time.Duration

	state   AtomicState
	version byte
	out     *Recipe
	in      *Recipe

	writeMu sync.Mutex // one input write in flight at a time
}

// NewConn wraps an established TCP connection to the controller's RTDE port.
// The returned Conn is in the Idle state until Handshake is called.
func NewConn(conn net.Conn, l logger.Logger) *Conn {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Conn{
		conn:             conn,
		logger:           l,
		handshakeTimeout: defaultHandshakeTimeout,
		pollTimeout:      defaultPollTimeout,
	}
}

// State returns the current handshake state.
func (c *Conn) State() State {
	return c.state.Get()
}

// ProtocolVersion returns the negotiated protocol version, or 0 before the
// handshake.
func (c *Conn) ProtocolVersion() byte {
	return c.version
}

// OutputRecipe returns the negotiated output recipe, or nil before the
// handshake completes.
func (c *Conn) OutputRecipe() *Recipe {
	return c.out
}

// InputRecipe returns the negotiated input recipe, or nil when the
// controller rejected input setup.
func (c *Conn) InputRecipe() *Recipe {
	return c.in
}

// SpeedControlSupported reports whether the speed-slider input recipe was
// negotiated, meaning speed writes can go through RTDE.
func (c *Conn) SpeedControlSupported() bool {
	return c.state.IsSynchronized() && c.in != nil
}

// Close closes the underlying TCP connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Handshake performs the full RTDE negotiation:
// protocol version (2, falling back to 1), controller version query, output
// recipe (degrading to field-by-field probing), optional input recipe, and
// the final start-sync request.
//
// Input recipe rejection is non-fatal; every other failure aborts the
// handshake and the caller should close the connection.
func (c *Conn) Handshake() error {
	c.state.Set(StateVersionRequested)

	if err := c.negotiateVersion(); err != nil {
		return err
	}
	c.state.Set(StateVersionAccepted)

	c.queryControllerVersion()

	if err := c.negotiateOutputs(); err != nil {
		return err
	}
	c.state.Set(StateOutputsConfigured)

	if err := c.negotiateInputs(); err != nil {
		// Speed control degrades to the dashboard/script path.
		c.logger.Warn("rtde input recipe unavailable, speed writes disabled", "error", err)
	} else {
		c.state.Set(StateInputsConfigured)
	}

	if err := c.start(); err != nil {
		return err
	}
	c.state.Set(StateSynchronized)

	c.logger.Info("rtde synchronized",
		"version", c.version,
		"output_fields", len(c.out.Fields),
		"speed_control", c.in != nil,
	)

	return nil
}

// negotiateVersion requests protocol version 2 and falls back to version 1
// if the controller declines.
func (c *Conn) negotiateVersion() error {
	for _, version := range []byte{protocolVersion2, protocolVersion1} {
		accepted, err := c.requestVersion(version)
		if err != nil {
			return err
		}
		if accepted {
			c.version = version
			return nil
		}

		c.logger.Debug("protocol version declined", "version", version)
	}

	return ErrVersionRejected
}

func (c *Conn) requestVersion(version byte) (bool, error) {
	if err := writeFrame(c.conn, c.handshakeTimeout, TypeRequestProtocolVersion, []byte{version}); err != nil {
		return false, err
	}

	payload, err := c.readReply(TypeRequestProtocolVersion)
	if err != nil {
		return false, err
	}

	return len(payload) >= 1 && payload[0] == 1, nil
}

// queryControllerVersion asks for the controller software version. The
// result is informational only; a malformed reply is logged and ignored.
func (c *Conn) queryControllerVersion() {
	if err := writeFrame(c.conn, c.handshakeTimeout, TypeGetControllerVersion, nil); err != nil {
		c.logger.Warn("controller version query failed", "error", err)
		return
	}

	payload, err := c.readReply(TypeGetControllerVersion)
	if err != nil {
		c.logger.Warn("controller version reply failed", "error", err)
		return
	}

	if len(payload) < 16 {
		c.logger.Warn("short controller version reply", "len", len(payload))
		return
	}

	c.logger.Info("controller version",
		"major", binary.BigEndian.Uint32(payload[0:4]),
		"minor", binary.BigEndian.Uint32(payload[4:8]),
		"bugfix", binary.BigEndian.Uint32(payload[8:12]),
		"build", binary.BigEndian.Uint32(payload[12:16]),
	)
}

// negotiateOutputs subscribes to the default output field list. When the
// controller declines the full list, each field is retried individually and
// the handshake proceeds with whatever subset the firmware supports.
func (c *Conn) negotiateOutputs() error {
	requested := DefaultOutputFields()

	recipe, err := c.setupRecipe(TypeSetupOutputs, requested)
	if err != nil {
		return err
	}
	if recipe != nil {
		c.out = recipe
		return nil
	}

	c.logger.Warn("full output list declined, retrying field by field")

	accepted := make([]Field, 0, len(requested))
	for _, field := range requested {
		single, err := c.setupRecipe(TypeSetupOutputs, []Field{field})
		if err != nil {
			return err
		}
		if single == nil {
			c.logger.Debug("output field unsupported", "field", field.Name)
			continue
		}

		accepted = append(accepted, field)
	}

	if len(accepted) == 0 {
		return ErrRecipeRejected
	}

	// One more setup with the reduced list yields the recipe id the data
	// packages will carry.
	recipe, err = c.setupRecipe(TypeSetupOutputs, accepted)
	if err != nil {
		return err
	}
	if recipe == nil {
		return ErrRecipeRejected
	}

	c.out = recipe

	return nil
}

// negotiateInputs sets up the write-only speed-slider recipe. Both fields
// must be accepted together; a partial mask without a fraction is useless.
func (c *Conn) negotiateInputs() error {
	fields := []Field{
		{Name: "speed_slider_mask", Count: 1},
		{Name: "speed_slider_fraction", Count: 1},
	}

	recipe, err := c.setupRecipe(TypeSetupInputs, fields)
	if err != nil {
		return err
	}
	if recipe == nil {
		return ErrNoInputRecipe
	}

	c.in = recipe

	return nil
}

// setupRecipe sends one setup request and parses the reply. It returns a nil
// recipe without error when the controller declined the field set, so the
// caller can degrade instead of aborting.
func (c *Conn) setupRecipe(typ byte, fields []Field) (*Recipe, error) {
	if err := writeFrame(c.conn, c.handshakeTimeout, typ, []byte(fieldNames(fields))); err != nil {
		return nil, err
	}

	payload, err := c.readReply(typ)
	if err != nil {
		return nil, err
	}

	if len(payload) < 1 || payload[0] == 0 {
		return nil, nil //nolint:nilnil
	}

	types := strings.Split(string(payload[1:]), ",")
	for _, t := range types {
		if strings.TrimSpace(t) == notFoundType {
			return nil, nil //nolint:nilnil
		}
	}

	return &Recipe{ID: payload[0], Fields: fields}, nil
}

// start sends the start-sync request that completes the handshake.
func (c *Conn) start() error {
	if err := writeFrame(c.conn, c.handshakeTimeout, TypeStart, nil); err != nil {
		return err
	}

	payload, err := c.readReply(TypeStart)
	if err != nil {
		return err
	}

	if len(payload) < 1 || payload[0] != 1 {
		return ErrStartRejected
	}

	return nil
}

// Pause asks the controller to stop streaming output packages. It is a
// best-effort courtesy before closing the socket.
func (c *Conn) Pause() error {
	if !c.state.IsSynchronized() {
		return ErrNotSynchronized
	}

	return writeFrame(c.conn, c.handshakeTimeout, TypePause, nil)
}

// readReply reads frames until a non-text frame arrives, skipping up to
// maxTextSkips interleaved text messages. A frame of an unexpected non-text
// type is an error: handshake requests are strictly request/response.
func (c *Conn) readReply(expect byte) ([]byte, error) {
	lenBuf := make([]byte, 2)

	for range maxTextSkips {
		typ, payload, err := readFrame(c.conn, lenBuf, c.handshakeTimeout)
		if err != nil {
			return nil, err
		}

		if typ == TypeTextMessage {
			c.logger.Debug("controller text message", "text", string(payload))
			continue
		}

		if typ != expect {
			return nil, fmt.Errorf("rtde: expected %s reply, got %s", typeName(expect), typeName(typ))
		}

		return payload, nil
	}

	return nil, ErrTooManyTextFrames
}

// Receive reads one frame from the stream and returns a decoded DataPackage
// when the frame belongs to the negotiated output recipe.
//
// A nil package with a nil error means "nothing for the caller this
// iteration": an idle poll window, a text message, or a data package for a
// stale recipe id. Any non-nil error is fatal for the channel.
//
// lenBuf must be a 2-byte scratch buffer owned by the receive loop.
func (c *Conn) Receive(lenBuf []byte) (*DataPackage, error) {
	if !c.state.IsSynchronized() {
		return nil, ErrNotSynchronized
	}

	typ, payload, err := readFrame(c.conn, lenBuf, c.pollTimeout)
	if err != nil {
		if err == errIdleRead {
			return nil, nil //nolint:nilnil
		}

		return nil, err
	}

	switch typ {
	case TypeTextMessage:
		c.logger.Debug("controller text message", "text", string(payload))
		return nil, nil //nolint:nilnil

	case TypeDataPackage:
		return c.decodeDataPackage(payload)

	default:
		c.logger.Debug("ignoring frame in receive loop", "type", typeName(typ))
		return nil, nil //nolint:nilnil
	}
}

func (c *Conn) decodeDataPackage(payload []byte) (*DataPackage, error) {
	if len(payload) < 1 || payload[0] != c.out.ID {
		return nil, nil //nolint:nilnil
	}

	body := payload[1:]
	want := c.out.ValueCount()
	if len(body) < want*8 {
		c.logger.Warn("short data package", "len", len(body), "want", want*8)
		return nil, nil //nolint:nilnil
	}

	values := make([]float64, want)
	for i := range values {
		bits := binary.BigEndian.Uint64(body[i*8 : i*8+8])
		values[i] = math.Float64frombits(bits)
	}

	return &DataPackage{RecipeID: payload[0], Values: values}, nil
}

// WriteSpeedFraction writes the speed-slider fraction through the input
// recipe. The write is fire-and-forget: the controller sends no
// acknowledgement frame. The fraction must already be clamped by the caller.
func (c *Conn) WriteSpeedFraction(fraction float64) error {
	if !c.state.IsSynchronized() {
		return ErrNotSynchronized
	}
	if c.in == nil {
		return ErrNoInputRecipe
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	payload := make([]byte, 1+4+8)
	payload[0] = c.in.ID
	binary.BigEndian.PutUint32(payload[1:5], speedSliderMask)
	binary.BigEndian.PutUint64(payload[5:13], math.Float64bits(fraction))

	return writeFrame(c.conn, c.handshakeTimeout, TypeDataPackage, payload)
}
