package urclient

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"time"
)

// Feedback frame layout. Offsets are measured from the start of the frame,
// including its 4-byte big-endian length header. Frames shorter than
// minDecodeFrame carry none of the fields below and are skipped.
const (
	feedbackJointsOffset = 252
	feedbackTCPOffset    = 444
	minDecodeFrame       = 492
	maxFeedbackFrame     = 1 << 16

	// feedbackDecimation keeps every Nth frame. The wire cadence is ~125 Hz;
	// decoding every 5th frame bounds CPU and downstream broadcast cost at an
	// effective ~25 Hz.
	feedbackDecimation = 5

	// feedbackPollTimeout bounds the wait for the next frame header so the
	// receive loop can observe cancellation.
	feedbackPollTimeout = 500 * time.Millisecond
	// feedbackBodyTimeout bounds the read of a started frame. Once the header
	// arrived, the rest follows within a frame period or the stream is dead.
	feedbackBodyTimeout = 2 * time.Second
)

// feedbackTask reads one telemetry frame per call. It returns true to keep
// the receive loop running; any transport error ends the loop and the
// channel is marked disconnected by the task's cancel hook.
func (c *Client) feedbackTask(conn net.Conn, lenBuf []byte) bool {
	if err := conn.SetReadDeadline(time.Now().Add(feedbackPollTimeout)); err != nil {
		c.logger.Error("feedback deadline failed", "error", err)
		return false
	}

	n, err := io.ReadFull(conn, lenBuf)
	if err != nil {
		if n == 0 && isTimeoutErr(err) {
			// Idle poll window; check for cancellation and try again.
			return true
		}

		c.logger.Error("feedback read failed", "error", err)

		return false
	}

	frameLen := binary.BigEndian.Uint32(lenBuf)
	if frameLen < 4 || frameLen > maxFeedbackFrame {
		c.logger.Error("bad feedback frame length", "len", frameLen)
		return false
	}

	body := make([]byte, frameLen-4)
	if err := conn.SetReadDeadline(time.Now().Add(feedbackBodyTimeout)); err != nil {
		c.logger.Error("feedback deadline failed", "error", err)
		return false
	}
	if _, err := io.ReadFull(conn, body); err != nil {
		c.logger.Error("feedback body read failed", "error", err)
		return false
	}

	if c.frameCount.Add(1)%feedbackDecimation != 0 {
		return true
	}

	if frameLen < minDecodeFrame {
		return true
	}

	var joints, tcp [6]float64
	decodeVector6(body, feedbackJointsOffset-4, &joints)
	decodeVector6(body, feedbackTCPOffset-4, &tcp)

	// SpeedFraction is deliberately left alone: this channel does not
	// transmit it, so the last value computed by RTDE or a manual set
	// carries over.
	c.state.Update(func(snap *Snapshot) {
		snap.Joints = joints
		snap.TCPPose = tcp
		snap.Timestamp = time.Now()
	})

	return true
}

// decodeVector6 reads six consecutive big-endian doubles starting at off.
func decodeVector6(body []byte, off int, out *[6]float64) {
	for i := range out {
		bits := binary.BigEndian.Uint64(body[off+i*8 : off+(i+1)*8])
		out[i] = math.Float64frombits(bits)
	}
}

func isTimeoutErr(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
