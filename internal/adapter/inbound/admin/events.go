package admin

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader accepts connections from any origin: the control-plane API is
// expected to sit behind loopback or a trusted reverse proxy, the same
// trust boundary as the rest of the admin routes.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents serves GET /ws/events: a live feed of verdict records as
// they're appended to the audit store, pushed as newline-delimited JSON
// frames. There's no broker in front of the audit store, so each connection
// polls it directly for records newer than the last one it has seen.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastSeen time.Time
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if s.auditStore == nil {
				continue
			}
			records := s.auditStore.GetRecent(100)
			for i := len(records) - 1; i >= 0; i-- {
				rec := records[i]
				if !rec.Timestamp.After(lastSeen) {
					continue
				}
				if err := conn.WriteJSON(rec); err != nil {
					return
				}
			}
			if len(records) > 0 {
				lastSeen = records[0].Timestamp
			}
		}
	}
}
