package net

import (
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the tick loop,
// which drains InQueue and posts to OutQueue via SendEnvelope.
type Session struct {
	ID   uint64
	conn net.Conn

	InQueue  chan Envelope // tick loop reads decoded envelopes from here
	OutQueue chan []byte   // writer goroutine reads encoded frames from here

	IP string

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, inSize, outSize int, log *zap.Logger) *Session {
	return &Session{
		ID:       id,
		conn:     conn,
		InQueue:  make(chan Envelope, inSize),
		OutQueue: make(chan []byte, outSize),
		IP:       conn.RemoteAddr().String(),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines. No handshake is needed
// for the JSON envelope transport.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// SendEnvelope marshals op/payload into an Envelope and queues it for
// sending. Satisfies world.SocketHandle.
func (s *Session) SendEnvelope(op string, payload any) {
	env, err := NewEnvelope(op, payload)
	if err != nil {
		if s.log != nil {
			s.log.Error("failed to marshal outgoing envelope", zap.String("op", op), zap.Error(err))
		}
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		if s.log != nil {
			s.log.Error("failed to marshal outgoing frame", zap.String("op", op), zap.Error(err))
		}
		return
	}
	s.send(data)
}

// send queues an already-encoded frame. Non-blocking: if OutQueue is full,
// the session is disconnected rather than letting a slow client stall the
// tick loop's broadcast fanout.
func (s *Session) send(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- data:
	default:
		if s.log != nil {
			s.log.Warn("output queue full, disconnecting slow session")
		}
		s.Close()
	}
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. It reads frames from the TCP
// connection, decodes the envelope, and pushes it onto InQueue for the
// tick loop to dispatch.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		raw, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() && s.log != nil {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			if s.log != nil {
				s.log.Warn("malformed envelope, dropping", zap.Error(err))
			}
			continue
		}

		// Block until InQueue has space or the session closes. A "move"
		// envelope dropped here causes permanent position desync because
		// the server tracks position authoritatively; blocking only stalls
		// this one session's own readLoop goroutine.
		select {
		case s.InQueue <- env:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop runs in its own goroutine. It reads encoded frames from
// OutQueue and writes them to the TCP connection.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := WriteFrame(s.conn, data); err != nil {
				if !s.closed.Load() && s.log != nil {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
