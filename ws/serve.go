package ws

import (
	"homematch-server/utils"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the HTTP connection to a WebSocket for the authenticated
// user, registers the session with the hub and starts the pumps. Runs behind
// the access-token verifier middleware.
func ServeWS(hub *Hub) iris.Handler {
	return func(ctx iris.Context) {
		tok := jwt.Get(ctx)
		if tok == nil {
			ctx.StopWithStatus(http.StatusUnauthorized)
			return
		}
		claims := tok.(*utils.AccessToken)

		conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
		if err != nil {
			log.Printf("websocket upgrade failed for user %d: %v", claims.ID, err)
			return
		}

		client := &Client{
			hub:       hub,
			conn:      conn,
			send:      make(chan []byte, 256),
			userID:    claims.ID,
			sessionID: uuid.NewString(),
		}
		hub.RegisterClient(client)
		go client.writePump()
		client.readPump()
	}
}
