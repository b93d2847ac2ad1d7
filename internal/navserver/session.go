package navserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/udisondev/nav3d/internal/collision"
	"github.com/udisondev/nav3d/internal/nav"
)

// session serves one websocket connection. Replies are queued and written by
// a dedicated goroutine so completion callbacks never block on the network.
type session struct {
	conn         *websocket.Conn
	registry     *Registry
	writeTimeout time.Duration

	out     chan any
	closeCh chan struct{}
	once    sync.Once
}

func newSession(conn *websocket.Conn, registry *Registry, writeTimeout time.Duration, queueSize int) *session {
	return &session{
		conn:         conn,
		registry:     registry,
		writeTimeout: writeTimeout,
		out:          make(chan any, queueSize),
		closeCh:      make(chan struct{}),
	}
}

// serve runs the read loop until the connection fails or close is called.
func (s *session) serve() {
	defer s.close()
	go s.writeLoop()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read failed", "remote", s.conn.RemoteAddr(), "error", err)
			}
			return
		}
		s.handle(payload)
	}
}

func (s *session) handle(payload []byte) {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.enqueue(errorMessage{Type: TypeError, Reason: "malformed message"})
		return
	}

	switch msg.Type {
	case TypeFindPath:
		s.findPath(msg)
	default:
		s.enqueue(errorMessage{
			Type:   TypeError,
			Seq:    msg.Seq,
			Reason: fmt.Sprintf("unknown message type %q", msg.Type),
		})
	}
}

func (s *session) findPath(msg clientMessage) {
	if msg.Start == nil || msg.End == nil {
		s.enqueue(errorMessage{Type: TypeError, Seq: msg.Seq, Reason: "start and end are required"})
		return
	}
	vol, ok := s.registry.Get(msg.Volume)
	if !ok {
		s.enqueue(errorMessage{Type: TypeError, Seq: msg.Seq, Reason: fmt.Sprintf("unknown volume %q", msg.Volume)})
		return
	}

	seq := msg.Seq
	threshold := vol.Config().LongPathThreshold
	vol.RequestPath(collision.ActorID(msg.Requester), mgl64.Vec3(*msg.Start), mgl64.Vec3(*msg.End),
		func(result nav.Result, points []mgl64.Vec3) {
			s.enqueue(newPathMessage(seq, result, points, threshold))
		})
}

// enqueue never blocks. A full outbox drops the message.
func (s *session) enqueue(msg any) {
	select {
	case <-s.closeCh:
		return
	default:
	}
	select {
	case s.out <- msg:
	default:
		slog.Warn("websocket outbox full, dropping message", "remote", s.conn.RemoteAddr())
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case msg := <-s.out:
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("marshaling websocket message", "error", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("websocket write failed", "remote", s.conn.RemoteAddr(), "error", err)
				s.close()
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.closeCh)
		_ = s.conn.Close()
	})
}
