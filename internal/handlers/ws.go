package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"

	"github.com/Ujjwal250802/chatapplication/internal/auth"
	"github.com/Ujjwal250802/chatapplication/internal/session"
	"github.com/Ujjwal250802/chatapplication/internal/store"
)

// ChatSocket GET /api/ws/chat?token=&peer_id= | &group_id=
//
// Each connection owns one session establisher: connect runs the full
// sequence (token, channel key, ensure, watch, peer diff) and teardown on
// close releases the identity binding.
func (a *API) ChatSocket(conn *websocket.Conn) {
	defer conn.Close()

	u, ok := conn.Locals(auth.LocalsUser).(*store.User)
	if !ok {
		return
	}
	user := auth.AuthenticatedUser(u)

	id, err := a.Identity.Resolve(user)
	if err != nil {
		return
	}
	token, err := a.Identity.IssueAccessToken(id)
	if err != nil {
		a.Log.Error("ws token issuance failed", "err", err)
		_ = conn.WriteJSON(map[string]string{"error": "could not connect to chat"})
		return
	}

	target := session.Target{
		PeerID:  conn.Query("peer_id"),
		GroupID: conn.Query("group_id"),
	}

	e := session.NewEstablisher(a.Hub, a.Identity, a.Channels, a.Log)
	if err := e.Connect(context.Background(), user, token, target); err != nil {
		_ = conn.WriteJSON(map[string]string{"error": "could not connect to chat"})
		return
	}
	defer e.Teardown()

	client := e.Client()
	go client.WritePump(conn)
	client.ReadPump(conn, e.Channel())
}
