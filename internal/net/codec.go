package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds a single envelope frame. JSON payloads (entity lists,
// world blueprints) run larger than the teacher's binary packets, so the
// length prefix is 4 bytes instead of 2.
const maxFrameSize = 1 << 20 // 1 MiB

// ReadFrame reads one length-prefixed JSON frame from r.
// Wire format: [4 bytes LE: len(payload)][payload].
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	n := binary.LittleEndian.Uint32(header[:])
	if n == 0 || n > maxFrameSize {
		return nil, fmt.Errorf("invalid frame length: %d", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", n, err)
	}
	return payload, nil
}

// WriteFrame writes one length-prefixed JSON frame to w.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", len(data))
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}
