package websocket

import (
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"compras/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and streams the
// caller's change events until the connection closes.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := auth.OwnerID(r.Context())
		if ownerID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// The server's read and write timeouts would cut a long-lived stream.
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.WarnContext(r.Context(), "WebSocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, ownerID).Run(r.Context())
	}
}
