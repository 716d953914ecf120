package v1

import (
	"net/http"

	"github.com/che-incubator/dashboard-backend/subscriptions"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
)

// WebSocket upgrades the request and relays subscriptions with the caller's
// credentials until the peer disconnects.
func (h *Handler) WebSocket(c *echo.Context) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	if h.Config.LocalRun {
		// the dev server of the front end runs on another origin
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	conn := subscriptions.NewConn(ws, kubeClient(c), h.Socket)
	if err := conn.Serve(c.Request().Context()); err != nil {
		log.Debug().Err(err).Str("conn", conn.ID()).Msg("websocket ended")
	}
	return nil
}
