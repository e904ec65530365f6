package websocket

import (
	"net/http"
	"strings"

	ws "github.com/coder/websocket"

	"github.com/selpix/selpix/internal/auth"
)

// HandleWebSocket upgrades authenticated requests to feed connections.
// The optional "entities" query parameter is a comma-separated filter.
// originPatterns limits cross-origin browsers; empty allows only same host.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entities []string
		if raw := r.URL.Query().Get("entities"); raw != "" {
			for _, e := range strings.Split(raw, ",") {
				if e = strings.TrimSpace(e); e != "" {
					entities = append(entities, e)
				}
			}
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			hub.logger.Warn("accept", "error", err)
			return
		}

		client := NewClient(hub, conn, auth.IsAdmin(r.Context()), entities)
		client.Run(r.Context())
	}
}
