package rtde

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// errIdleRead reports that a read deadline expired before any byte of the
// next frame arrived. The stream is still framed correctly; the caller may
// simply poll again. A deadline that expires mid-frame is a real transport
// error, because the stream can no longer be resynchronized.
var errIdleRead = errors.New("rtde: idle read")

// writeFrame writes one RTDE frame: 2-byte big-endian total length, 1-byte
// type, payload.
func writeFrame(conn net.Conn, timeout time.Duration, typ byte, payload []byte) error {
	total := headerSize + len(payload)
	buf := make([]byte, total)
	binary.BigEndian.PutUint16(buf[0:2], uint16(total)) //nolint:gosec
	buf[2] = typ
	copy(buf[headerSize:], payload)

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("write %s frame: %w", typeName(typ), err)
	}

	return nil
}

// readFrame reads one complete RTDE frame and returns its type and payload.
//
// lenBuf must be a 2-byte scratch buffer reused across calls. When the
// deadline expires before the first byte of the length header, readFrame
// returns errIdleRead so a receive loop can check for cancellation and poll
// again without tearing the channel down.
func readFrame(conn net.Conn, lenBuf []byte, timeout time.Duration) (byte, []byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, fmt.Errorf("set read deadline: %w", err)
	}

	n, err := io.ReadFull(conn, lenBuf)
	if err != nil {
		if n == 0 && isTimeout(err) {
			return 0, nil, errIdleRead
		}

		return 0, nil, fmt.Errorf("read frame length: %w", err)
	}

	frameLen := int(binary.BigEndian.Uint16(lenBuf))
	if frameLen < headerSize {
		return 0, nil, ErrFrameTooShort
	}

	body := make([]byte, frameLen-2)
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, nil, fmt.Errorf("read frame body: %w", err)
	}

	return body[0], body[1:], nil
}

func isTimeout(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func typeName(typ byte) string {
	switch typ {
	case TypeRequestProtocolVersion:
		return "request-protocol-version"
	case TypeGetControllerVersion:
		return "get-controller-version"
	case TypeTextMessage:
		return "text-message"
	case TypeDataPackage:
		return "data-package"
	case TypeSetupOutputs:
		return "setup-outputs"
	case TypeSetupInputs:
		return "setup-inputs"
	case TypeStart:
		return "start"
	case TypePause:
		return "pause"
	default:
		return "unknown"
	}
}
