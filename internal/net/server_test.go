package net

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_AcceptLoop_DeliversNewSession(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8, 8, zap.NewNop())
	require.NoError(t, err)
	go srv.AcceptLoop()
	defer srv.Shutdown()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case sess := <-srv.NewSessions():
		assert.NotZero(t, sess.ID)
		sess.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for new session")
	}
}

func TestServer_Shutdown_StopsAcceptLoop(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8, 8, zap.NewNop())
	require.NoError(t, err)
	addr := srv.Addr().String()
	go srv.AcceptLoop()

	srv.Shutdown()
	time.Sleep(50 * time.Millisecond)

	_, err = net.Dial("tcp", addr)
	assert.Error(t, err)
}
