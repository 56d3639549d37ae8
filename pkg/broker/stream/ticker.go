package stream

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"scalper-core/pkg/broker/common"
)

// TickerClient consumes the broker's market-data websocket and hands tick
// batches to OnBatch. It reconnects with backoff and never returns an error
// to the caller; the price stream degrading must not stop the session.
type TickerClient struct {
	URL         string
	APIKey      string
	AccessToken string
	OnBatch     func([]common.Tick)
}

// Run connects and reads until ctx is canceled.
func (c *TickerClient) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.readLoop(ctx); err != nil {
			log.Printf("ticker stream: %v; reconnecting in %v", err, backoff)
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

func (c *TickerClient) readLoop(ctx context.Context) error {
	header := map[string][]string{
		"X-Api-Key":     {c.APIKey},
		"Authorization": {"token " + c.APIKey + ":" + c.AccessToken},
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("ticker stream connected: %s", c.URL)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var batch []common.Tick
		if err := json.Unmarshal(msg, &batch); err != nil {
			log.Printf("ticker stream: bad payload: %v", err)
			continue
		}
		if len(batch) > 0 && c.OnBatch != nil {
			c.OnBatch(batch)
		}
	}
}
