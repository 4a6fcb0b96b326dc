package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a Hub client until the
// connection closes. An empty originPatterns list accepts any origin.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
	if len(originPatterns) == 0 {
		opts.InsecureSkipVerify = true
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn).Run(r.Context())
	}
}
