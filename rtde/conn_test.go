package rtde

import (
	"encoding/binary"
	"math"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ur/logger"
)

type frame struct {
	typ     byte
	payload []byte
}

// fakeController answers each request frame through a handler function,
// which returns the frames to send back.
type fakeController struct {
	conn    net.Conn
	handler func(typ byte, payload []byte) []frame
}

func newFakeController(t *testing.T, handler func(typ byte, payload []byte) []frame) *Conn {
	t.Helper()

	client, server := net.Pipe()
	fc := &fakeController{conn: server, handler: handler}
	go fc.serve()

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	return NewConn(client, logger.NewNoop())
}

func (fc *fakeController) serve() {
	lenBuf := make([]byte, 2)
	for {
		typ, payload, err := readFrame(fc.conn, lenBuf, 5*time.Second)
		if err != nil {
			return
		}

		for _, reply := range fc.handler(typ, payload) {
			if err := writeFrame(fc.conn, 5*time.Second, reply.typ, reply.payload); err != nil {
				return
			}
		}
	}
}

// acceptAll is a well-behaved controller: version 2, every recipe accepted.
func acceptAll(typ byte, payload []byte) []frame {
	switch typ {
	case TypeRequestProtocolVersion:
		return []frame{{TypeRequestProtocolVersion, []byte{1}}}

	case TypeGetControllerVersion:
		buf := make([]byte, 16)
		binary.BigEndian.PutUint32(buf[0:4], 5)
		binary.BigEndian.PutUint32(buf[4:8], 12)
		return []frame{{TypeGetControllerVersion, buf}}

	case TypeSetupOutputs:
		return []frame{{TypeSetupOutputs, recipeReply(1, payload)}}

	case TypeSetupInputs:
		return []frame{{TypeSetupInputs, recipeReply(2, payload)}}

	case TypeStart:
		return []frame{{TypeStart, []byte{1}}}
	}

	return nil
}

// recipeReply builds a setup reply: recipe id plus one type token per
// requested field name.
func recipeReply(id byte, requested []byte) []byte {
	names := strings.Split(string(requested), ",")
	types := make([]string, len(names))
	for i := range names {
		types[i] = "DOUBLE"
	}

	return append([]byte{id}, []byte(strings.Join(types, ","))...)
}

func TestHandshake_FullAccept(t *testing.T) {
	conn := newFakeController(t, acceptAll)

	require.NoError(t, conn.Handshake())

	assert.Equal(t, StateSynchronized, conn.State())
	assert.Equal(t, protocolVersion2, conn.ProtocolVersion())
	assert.True(t, conn.SpeedControlSupported())

	out := conn.OutputRecipe()
	require.NotNil(t, out)
	assert.Equal(t, byte(1), out.ID)
	assert.Equal(t, len(DefaultOutputFields()), len(out.Fields))

	in := conn.InputRecipe()
	require.NotNil(t, in)
	assert.Equal(t, byte(2), in.ID)
}

func TestHandshake_VersionFallback(t *testing.T) {
	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		if typ == TypeRequestProtocolVersion {
			if payload[0] == protocolVersion2 {
				return []frame{{TypeRequestProtocolVersion, []byte{0}}}
			}
			return []frame{{TypeRequestProtocolVersion, []byte{1}}}
		}
		return acceptAll(typ, payload)
	})

	require.NoError(t, conn.Handshake())
	assert.Equal(t, protocolVersion1, conn.ProtocolVersion())
}

func TestHandshake_VersionRejected(t *testing.T) {
	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		if typ == TypeRequestProtocolVersion {
			return []frame{{TypeRequestProtocolVersion, []byte{0}}}
		}
		return acceptAll(typ, payload)
	})

	err := conn.Handshake()
	require.ErrorIs(t, err, ErrVersionRejected)
	assert.NotEqual(t, StateSynchronized, conn.State())
}

func TestHandshake_InputRecipeRejected(t *testing.T) {
	// Output setup succeeds but input setup is declined with recipe id 0.
	// The handshake still completes; only speed writes are unavailable.
	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		if typ == TypeSetupInputs {
			return []frame{{TypeSetupInputs, []byte{0}}}
		}
		return acceptAll(typ, payload)
	})

	require.NoError(t, conn.Handshake())

	assert.Equal(t, StateSynchronized, conn.State())
	assert.False(t, conn.SpeedControlSupported())
	assert.Nil(t, conn.InputRecipe())

	err := conn.WriteSpeedFraction(0.5)
	require.ErrorIs(t, err, ErrNoInputRecipe)
}

func TestHandshake_FieldByFieldFallback(t *testing.T) {
	// The full output list is declined because one field is unsupported.
	// Each field is retried individually and the unsupported one is dropped.
	unsupported := FieldSafetyMode

	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		if typ == TypeSetupOutputs {
			names := strings.Split(string(payload), ",")
			types := make([]string, len(names))
			rejected := false
			for i, name := range names {
				if name == unsupported {
					types[i] = "NOT_FOUND"
					rejected = true
				} else {
					types[i] = "DOUBLE"
				}
			}
			if rejected {
				return []frame{{TypeSetupOutputs, append([]byte{1}, []byte(strings.Join(types, ","))...)}}
			}
			return []frame{{TypeSetupOutputs, recipeReply(1, payload)}}
		}
		return acceptAll(typ, payload)
	})

	require.NoError(t, conn.Handshake())

	out := conn.OutputRecipe()
	require.NotNil(t, out)
	assert.Equal(t, len(DefaultOutputFields())-1, len(out.Fields))
	assert.False(t, out.Has(unsupported))
	assert.True(t, out.Has(FieldActualQ))
}

func TestHandshake_StartRejected(t *testing.T) {
	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		if typ == TypeStart {
			return []frame{{TypeStart, []byte{0}}}
		}
		return acceptAll(typ, payload)
	})

	err := conn.Handshake()
	require.ErrorIs(t, err, ErrStartRejected)
}

func TestHandshake_SkipsTextMessages(t *testing.T) {
	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		if typ == TypeRequestProtocolVersion {
			return []frame{
				{TypeTextMessage, []byte("controller booting")},
				{TypeRequestProtocolVersion, []byte{1}},
			}
		}
		return acceptAll(typ, payload)
	})

	require.NoError(t, conn.Handshake())
	assert.Equal(t, StateSynchronized, conn.State())
}

func TestReceive_DataPackage(t *testing.T) {
	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		replies := acceptAll(typ, payload)
		if typ == TypeStart {
			// Stream one data package right after sync is confirmed.
			count := len(DefaultOutputFields()) + 5 + 5 // vector fields carry 6 values each
			body := make([]byte, 1+count*8)
			body[0] = 1
			for i := range count {
				binary.BigEndian.PutUint64(body[1+i*8:], math.Float64bits(float64(i)))
			}
			replies = append(replies, frame{TypeDataPackage, body})
		}
		return replies
	})

	require.NoError(t, conn.Handshake())

	lenBuf := make([]byte, 2)
	var pkg *DataPackage
	for range 10 {
		var err error
		pkg, err = conn.Receive(lenBuf)
		require.NoError(t, err)
		if pkg != nil {
			break
		}
	}

	require.NotNil(t, pkg)
	assert.Equal(t, byte(1), pkg.RecipeID)
	require.Equal(t, conn.OutputRecipe().ValueCount(), len(pkg.Values))
	assert.Equal(t, 0.0, pkg.Values[0])
	assert.Equal(t, 1.0, pkg.Values[1])
}

func TestReceive_IdleAndStaleRecipe(t *testing.T) {
	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		replies := acceptAll(typ, payload)
		if typ == TypeStart {
			// A data package for a recipe id this session never negotiated.
			replies = append(replies, frame{TypeDataPackage, []byte{99, 0, 0, 0, 0, 0, 0, 0, 0}})
		}
		return replies
	})

	require.NoError(t, conn.Handshake())

	lenBuf := make([]byte, 2)

	// The stale-recipe package is dropped without error.
	pkg, err := conn.Receive(lenBuf)
	require.NoError(t, err)
	assert.Nil(t, pkg)

	// Nothing else arrives, so the poll window elapses and reports idle.
	pkg, err = conn.Receive(lenBuf)
	require.NoError(t, err)
	assert.Nil(t, pkg)
}

func TestReceive_BeforeHandshake(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	conn := NewConn(client, logger.NewNoop())
	_, err := conn.Receive(make([]byte, 2))
	require.ErrorIs(t, err, ErrNotSynchronized)
}

func TestWriteSpeedFraction_Wire(t *testing.T) {
	written := make(chan frame, 1)

	conn := newFakeController(t, func(typ byte, payload []byte) []frame {
		if typ == TypeDataPackage {
			written <- frame{typ, payload}
			return nil
		}
		return acceptAll(typ, payload)
	})

	require.NoError(t, conn.Handshake())
	require.NoError(t, conn.WriteSpeedFraction(0.25))

	select {
	case got := <-written:
		require.Len(t, got.payload, 13)
		assert.Equal(t, byte(2), got.payload[0])
		assert.Equal(t, uint32(1), binary.BigEndian.Uint32(got.payload[1:5]))
		assert.Equal(t, 0.25, math.Float64frombits(binary.BigEndian.Uint64(got.payload[5:13])))
	case <-time.After(2 * time.Second):
		t.Fatal("speed write never reached the controller")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "synchronized", StateSynchronized.String())
}
