package net

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameReadFrame_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"op":"hello","payload":{"name":"bob"}}`)

	require.NoError(t, WriteFrame(&buf, payload))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrame_RejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	// header claims a frame larger than maxFrameSize
	require.NoError(t, WriteFrame(&buf, make([]byte, 0)))
	buf.Reset()
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff}) // length = max uint32

	_, err := ReadFrame(&buf)
	assert.Error(t, err)
}

func TestReadFrame_RejectsZeroLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})

	_, err := ReadFrame(&buf)
	assert.Error(t, err)
}

func TestWriteFrame_RejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, maxFrameSize+1))
	assert.Error(t, err)
}
