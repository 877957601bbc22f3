package proto

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Frames on the TCP transport are length-prefixed: a 4-byte big-endian
// payload length followed by the payload. The prefix guarantees no
// truncation or fragment concatenation regardless of message size.
const lengthPrefixSize = 4

// ErrFrameTooLarge is returned for frames exceeding the configured
// maximum on either side of the connection.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// WriteRaw writes one length-prefixed payload. Prefix and payload go out
// in a single Write so a frame is never split across writer calls.
func WriteRaw(w io.Writer, payload []byte, max int) error {
	if len(payload) > max {
		return fmt.Errorf("write frame of %d bytes: %w", len(payload), ErrFrameTooLarge)
	}
	buf := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[lengthPrefixSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadRaw reads one length-prefixed payload, blocking until the whole
// frame is available.
func ReadRaw(r io.Reader, max int) ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read frame prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if int64(n) > int64(max) {
		return nil, fmt.Errorf("read frame of %d bytes: %w", n, ErrFrameTooLarge)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

// WriteFrame encodes and writes one message frame.
func WriteFrame(w io.Writer, f Frame, max int) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return WriteRaw(w, payload, max)
}

// ReadFrame reads and decodes one message frame.
func ReadFrame(r io.Reader, max int) (Frame, error) {
	payload, err := ReadRaw(r, max)
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
