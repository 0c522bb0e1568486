package stream

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the websocket feed. latest, when set, supplies the
// payload a client receives right after connecting; a nil result sends
// nothing. Broadcasts queued while latest ran that are not newer than it, by
// their "version" field, are skipped.
func RegisterRoutes(r fiber.Router, hub *Hub, latest func(deviceID string) []byte) {
	r.Get("/ws/:deviceID", websocket.New(func(c *websocket.Conn) {
		deviceID := c.Params("deviceID")
		client := hub.Register(deviceID)

		var floor uint64
		var backlog int
		if latest != nil {
			if msg := latest(deviceID); msg != nil {
				backlog = len(client.Send)
				var ok bool
				if floor, ok = versionOf(msg); !ok {
					backlog = 0
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					hub.Unregister(client)
					return
				}
			}
		}

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if backlog > 0 {
					backlog--
					if v, ok := versionOf(msg); ok && v <= floor {
						continue
					}
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		// closing Send ends the writer
		hub.Unregister(client)
		<-done
	}))
}

func versionOf(payload []byte) (uint64, bool) {
	var v struct {
		Version *uint64 `json:"version"`
	}
	if err := json.Unmarshal(payload, &v); err != nil || v.Version == nil {
		return 0, false
	}
	return *v.Version, true
}
