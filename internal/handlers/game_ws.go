// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/twentyeight/internal/game"
	"github.com/jason-s-yu/twentyeight/internal/middleware"
	"github.com/jason-s-yu/twentyeight/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "game"

const (
	writeTimeout   = 5 * time.Second
	pingInterval   = 30 * time.Second
	cleanupTimeout = 5 * time.Second
)

// GameServer wires websocket clients to the engine.
type GameServer struct {
	Core   *game.GameCore
	Hub    *Hub
	Logger *logrus.Logger

	// OriginPatterns is passed to websocket.Accept. Empty means same-origin only.
	OriginPatterns []string
}

// NewGameServer creates a GameServer.
func NewGameServer(core *game.GameCore, hub *Hub, logger *logrus.Logger, originPatterns []string) *GameServer {
	return &GameServer{Core: core, Hub: hub, Logger: logger, OriginPatterns: originPatterns}
}

// GameWSHandler upgrades the request, registers the connection as a channel and runs its read
// loop. When the socket closes the engine is told that the channel was lost.
func (s *GameServer) GameWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: s.OriginPatterns,
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the game subprotocol")
			return
		}

		conn := s.Hub.Register()
		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, conn.ID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go s.writePump(ctx, c, conn)
		readErr := s.readPump(ctx, c, conn)

		// The request context is gone once the client leaves, so cleanup gets its own.
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), cleanupTimeout)
		if err := s.Core.ChannelLost(cleanupCtx, conn.ID); err != nil {
			s.Logger.WithField("channel", conn.ID).WithError(err).Error("failed to release channel")
		}
		cleanupCancel()
		s.Hub.Unregister(conn.ID)
		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, conn.ID, readErr)
	}
}

// readPump reads frames until the socket closes and answers each with an acknowledgement.
// It returns the read error unless the close was a normal one.
func (s *GameServer) readPump(ctx context.Context, c *websocket.Conn, conn *Connection) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.Logger.WithField("channel", conn.ID).Warnf("ignoring non-text message type %d", typ)
			continue
		}

		frame, req, err := protocol.Decode(data)
		var ack protocol.Ack
		if err != nil {
			ack = protocol.Failure(frame, err)
		} else {
			ack = s.dispatch(ctx, conn, frame, req)
		}
		if !conn.Write(ack) {
			s.Logger.WithFields(logrus.Fields{"channel": conn.ID, "op": frame.Op}).Warn("dropped acknowledgement")
		}
	}
}

// writePump drains the connection's queue onto the socket and keeps it alive with pings.
func (s *GameServer) writePump(ctx context.Context, c *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			c.Close(ServerShutdownError, "server is shutting down")
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				s.Logger.WithField("channel", conn.ID).WithError(err).Error("failed to marshal outgoing message")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.WithField("channel", conn.ID).WithError(err).Warn("failed to write to websocket")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.WithField("channel", conn.ID).WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
