// Package instrument maintains the tradable universe: identity, leverage
// margin and where it is loaded from.
package instrument

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"scalper-core/pkg/db"
)

// Instrument identifies one tradable equity and its broker leverage margin.
// Instances are immutable once the universe is built; the trailing trigger
// price lives in the dispatcher-owned tracker, not here.
type Instrument struct {
	Token  uint32  `yaml:"token"`
	Symbol string  `yaml:"symbol"`
	Margin float64 `yaml:"margin"`
}

// Universe is the set of instruments the session trades.
type Universe struct {
	byToken map[uint32]Instrument
}

// NewUniverse builds a universe from a list of instruments.
func NewUniverse(list []Instrument) *Universe {
	u := &Universe{byToken: make(map[uint32]Instrument, len(list))}
	for _, ins := range list {
		if ins.Margin <= 0 {
			ins.Margin = 1
		}
		u.byToken[ins.Token] = ins
	}
	return u
}

// Get returns the instrument for a token.
func (u *Universe) Get(token uint32) (Instrument, bool) {
	ins, ok := u.byToken[token]
	return ins, ok
}

// Symbol returns the trading symbol for a token.
func (u *Universe) Symbol(token uint32) (string, bool) {
	ins, ok := u.byToken[token]
	return ins.Symbol, ok
}

// Tokens returns all instrument tokens.
func (u *Universe) Tokens() []uint32 {
	out := make([]uint32, 0, len(u.byToken))
	for tok := range u.byToken {
		out = append(out, tok)
	}
	return out
}

// All returns every instrument in the universe.
func (u *Universe) All() []Instrument {
	out := make([]Instrument, 0, len(u.byToken))
	for _, ins := range u.byToken {
		out = append(out, ins)
	}
	return out
}

// Len returns the universe size.
func (u *Universe) Len() int { return len(u.byToken) }

type watchlistFile struct {
	Instruments []Instrument `yaml:"instruments"`
}

// LoadFile reads a YAML watchlist file.
func LoadFile(path string) ([]Instrument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file watchlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse watchlist %s: %w", path, err)
	}
	return file.Instruments, nil
}

// Load builds the universe from the DB, seeding from the YAML watchlist when
// the instruments table is empty.
func Load(ctx context.Context, database *db.Database, watchlistPath string) (*Universe, error) {
	rows, err := database.ListActiveInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	if len(rows) == 0 && watchlistPath != "" {
		seed, err := LoadFile(watchlistPath)
		if err != nil {
			return nil, fmt.Errorf("seed watchlist: %w", err)
		}
		for _, ins := range seed {
			if err := database.UpsertInstrument(ctx, db.Instrument(ins)); err != nil {
				return nil, fmt.Errorf("seed instrument %s: %w", ins.Symbol, err)
			}
		}
		rows, err = database.ListActiveInstruments(ctx)
		if err != nil {
			return nil, fmt.Errorf("reload instruments: %w", err)
		}
	}

	list := make([]Instrument, 0, len(rows))
	for _, r := range rows {
		list = append(list, Instrument(r))
	}
	return NewUniverse(list), nil
}
