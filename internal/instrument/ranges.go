package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"scalper-core/pkg/db"
)

// triggerRange is one row of the broker's daily trigger-range feed.
type triggerRange struct {
	Symbol        string  `json:"tradingsymbol"`
	CoLower       float64 `json:"co_lower"`
	CoUpper       float64 `json:"co_upper"`
	MisMultiplier float64 `json:"mis_multiplier"`
}

// RefreshTriggerRanges fetches the daily margin/trigger-range feed and
// updates instrument rows. Called once at session start; a failure leaves
// yesterday's margins in place and is not fatal.
func RefreshTriggerRanges(ctx context.Context, url string, database *db.Database) error {
	if url == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch trigger ranges: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch trigger ranges: status %d", resp.StatusCode)
	}

	var ranges []triggerRange
	if err := json.NewDecoder(resp.Body).Decode(&ranges); err != nil {
		return fmt.Errorf("decode trigger ranges: %w", err)
	}

	for _, r := range ranges {
		if r.MisMultiplier <= 0 {
			continue
		}
		if err := database.UpdateInstrumentMargin(ctx, r.Symbol, r.MisMultiplier); err != nil {
			return fmt.Errorf("update margin %s: %w", r.Symbol, err)
		}
	}
	return nil
}
