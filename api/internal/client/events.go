package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stockroom/api/internal/core/domain"
)

// Events follows the live event stream until ctx is done or the server goes away.
// Every frame is opened with the client's sealer before fn sees it.
func (c *Client) Events(ctx context.Context, fn func(domain.Event)) error {
	u, err := url.Parse(c.baseURL + "/events")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("X-Request-Id", uuid.NewString())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial events: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		plain, err := c.sealer.Open(strings.TrimSpace(string(frame)))
		if err != nil {
			return fmt.Errorf("open event: %w", err)
		}

		var e domain.Event
		if err := json.Unmarshal([]byte(plain), &e); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		fn(e)
	}
}
