package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/verto"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	sendBuffer   = 32
)

// Socket is a dialing websocket client. Connect may be called again after a
// close to establish a fresh connection against the same URL.
type Socket struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func NewSocket(url string) *Socket {
	return &Socket{url: url}
}

func (s *Socket) Connect(h verto.SocketHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.closeLocked()
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	s.conn = conn
	s.send = make(chan []byte, sendBuffer)
	s.done = make(chan struct{})

	go s.writePump(conn, s.send, s.done)
	go s.readPump(conn, h)

	h.OnOpen()
	return nil
}

func (s *Socket) Send(data []byte) error {
	s.mu.Lock()
	send, done := s.send, s.done
	s.mu.Unlock()

	if send == nil {
		return errors.New("socket not connected")
	}
	select {
	case send <- data:
		return nil
	case <-done:
		return errors.New("socket closed")
	}
}

func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Socket) closeLocked() {
	if s.conn == nil {
		return
	}
	deadline := time.Now().Add(writeTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = s.conn.Close()
	close(s.done)
	s.conn = nil
	s.send = nil
	s.done = nil
}

func (s *Socket) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (s *Socket) readPump(conn *websocket.Conn, h verto.SocketHandler) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			local := s.conn != conn
			if !local {
				s.closeLocked()
			}
			s.mu.Unlock()
			if local {
				// Torn down by Close; the owner already knows.
				return
			}
			code := closeCode(err)
			log.Info().Err(err).Str("module", "ws").Int("code", code).Msg("readPump closing")
			h.OnClose(code)
			return
		}
		h.OnMessage(data)
	}
}

func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
