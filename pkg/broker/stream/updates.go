package stream

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"scalper-core/pkg/broker/common"
)

// UpdateClient consumes the broker's order-postback websocket and forwards
// each update to OnUpdate. Malformed payloads are logged and skipped.
type UpdateClient struct {
	URL      string
	APIKey   string
	OnUpdate func(common.OrderUpdate)
}

// Run connects and reads until ctx is canceled, reconnecting with backoff.
func (c *UpdateClient) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.readLoop(ctx); err != nil {
			log.Printf("postback stream: %v; reconnecting in %v", err, backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *UpdateClient) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, map[string][]string{"X-Api-Key": {c.APIKey}})
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("postback stream connected: %s", c.URL)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var upd common.OrderUpdate
		if err := json.Unmarshal(msg, &upd); err != nil {
			log.Printf("postback stream: bad payload: %v", err)
			continue
		}
		if c.OnUpdate != nil {
			c.OnUpdate(upd)
		}
	}
}
