package server

import (
	"context"
	"log"
	"time"

	"promptdoumi/internal/models"
	"promptdoumi/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const wsPingInterval = 30 * time.Second

// WebSocketAuthRequired admits upgrade requests that carry a valid ticket
// (browsers) or bearer token (other clients).
func (s *Server) WebSocketAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		var (
			session *models.Session
			err     error
		)
		if ticket := c.Query("ticket"); ticket != "" {
			session, err = s.authService.RedeemTicket(c.UserContext(), ticket)
		} else if token := bearerToken(c); token != "" {
			session, err = s.authService.GetSession(c.UserContext(), token)
		} else {
			err = models.NewUnauthorizedError("Authorization required")
		}
		if err != nil {
			return models.Respond(c, err)
		}

		withSession(c, session)
		return c.Next()
	}
}

// WebSocketAuthHandler streams the signed-in admin's auth events until the
// socket closes or the server shuts down.
func (s *Server) WebSocketAuthHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.WebSocketConnections.Inc()
		defer observability.WebSocketConnections.Dec()

		session, ok := conn.Locals(localsSession).(*models.Session)
		if !ok || session == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		parent := s.shutdownCtx
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		events, unsubscribe := s.authService.Subscribe(ctx)
		defer unsubscribe()

		// Reader: the client never sends anything useful, but reading
		// surfaces the close frame.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.UserID != session.UserID {
					continue
				}
				if err := conn.WriteJSON(ev); err != nil {
					log.Printf("WebSocket auth: write to admin %d failed: %v", session.UserID, err)
					return
				}
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}
