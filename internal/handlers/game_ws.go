// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doomtemple/server/internal/game"
	"github.com/doomtemple/server/internal/middleware"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	// sinkBuffer bounds the per-connection outbound queue. A client that
	// cannot drain it in time is dropped rather than allowed to stall the
	// session goroutine.
	sinkBuffer = 64
)

var (
	errSinkClosed = errors.New("ws: sink closed")
	errSinkSlow   = errors.New("ws: outbound buffer full")
)

// wsSink adapts one websocket connection to the session's Sink interface.
// Send only hands the message to the write pump; the session goroutine never
// blocks on the network.
type wsSink struct {
	conn *websocket.Conn
	out  chan game.ServerMessage
	done chan struct{}
	once sync.Once
	log  logrus.FieldLogger
}

func newWSSink(conn *websocket.Conn, log logrus.FieldLogger) *wsSink {
	return &wsSink{
		conn: conn,
		out:  make(chan game.ServerMessage, sinkBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (s *wsSink) Send(msg game.ServerMessage) error {
	select {
	case <-s.done:
		return errSinkClosed
	default:
	}
	select {
	case s.out <- msg:
		return nil
	case <-s.done:
		return errSinkClosed
	default:
		s.log.Warn("outbound buffer full, dropping client")
		s.Close()
		return errSinkSlow
	}
}

func (s *wsSink) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *wsSink) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// writePump serializes outbound messages onto the connection and keeps it
// alive with pings. It exits once the sink closes or a write fails. A
// server-side close still drains the buffer first, so notices queued right
// before Close (game_is_full, the terminal snapshot) reach the client.
func (s *wsSink) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.conn.Close(websocket.StatusNormalClosure, "")

	for {
		select {
		case <-s.done:
			s.flush()
			return
		case <-ctx.Done():
			s.Close()
			s.flush()
			return
		case msg := <-s.out:
			if err := s.write(msg); err != nil {
				s.log.WithError(err).Debug("write failed, closing sink")
				s.Close()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.WithError(err).Debug("ping failed, closing sink")
				s.Close()
				return
			}
		}
	}
}

func (s *wsSink) write(msg game.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).Error("failed to marshal outbound message")
		return nil
	}
	// Timeouts run off the background context so a flush still completes
	// after the request context is cancelled.
	writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.conn.Write(writeCtx, websocket.MessageText, data)
}

// flush writes whatever is still buffered at close time and stops at the
// first failed write.
func (s *wsSink) flush() {
	for {
		select {
		case msg := <-s.out:
			if err := s.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// GameWSHandler upgrades the connection for /api/{game_name}/{player_id}/ws,
// attaches the client to the named session (creating it on first join) and
// pumps frames in both directions until either side disconnects.
func (srv *Server) GameWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameName, playerID, ok := parseGamePath(r.URL.Path)
		if !ok {
			http.Error(w, "expected /api/{game_name}/{player_id}/ws", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: srv.cfg.Server.OriginPatterns,
		})
		if err != nil {
			srv.log.WithError(err).Warn("websocket accept failed")
			return
		}
		middleware.LogWebSocketConnect(srv.log, r.RemoteAddr, r.URL.Path)

		log := srv.log.WithFields(logrus.Fields{"game": gameName, "player": playerID})
		sink := newWSSink(conn, log)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go sink.writePump(ctx)

		session := srv.registry.Session(gameName)
		if !session.Enqueue(game.ClientJoin{PlayerID: playerID, Sink: sink}) {
			// The session finished between lookup and join; a second lookup
			// yields a fresh one.
			session = srv.registry.Session(gameName)
			if !session.Enqueue(game.ClientJoin{PlayerID: playerID, Sink: sink}) {
				conn.Close(websocket.StatusTryAgainLater, "session unavailable")
				return
			}
		}

		readErr := srv.readClientMessages(ctx, conn, session, playerID, log)
		sink.Close()
		session.Enqueue(game.ClientLeave{PlayerID: playerID})
		middleware.LogWebSocketDisconnect(srv.log, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readClientMessages decodes inbound frames and forwards them to the session
// until the connection drops. Malformed frames are logged and skipped.
func (srv *Server) readClientMessages(ctx context.Context, conn *websocket.Conn, session *game.Session, playerID uuid.UUID, log logrus.FieldLogger) error {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warnf("ignoring non-text frame type %d", msgType)
			continue
		}

		var msg game.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("invalid JSON frame, ignoring")
			continue
		}
		log.WithField("cmd", msg.Cmd).Debug("client command")

		if !session.Enqueue(game.ClientMessageEvent{PlayerID: playerID, Msg: msg}) {
			return nil
		}
	}
}

// parseGamePath extracts the game name and player id from
// /api/{game_name}/{player_id}/ws.
func parseGamePath(path string) (string, uuid.UUID, bool) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/")
	if len(parts) != 3 || parts[2] != "ws" || parts[0] == "" {
		return "", uuid.Nil, false
	}
	playerID, err := uuid.Parse(parts[1])
	if err != nil {
		return "", uuid.Nil, false
	}
	return parts[0], playerID, true
}
