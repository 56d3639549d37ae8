// Package engine assembles the trading session: accounts, universe, feeds,
// executors, reconciler and the day's schedule.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"scalper-core/internal/account"
	"scalper-core/internal/events"
	"scalper-core/internal/executor"
	"scalper-core/internal/instrument"
	"scalper-core/internal/market"
	"scalper-core/internal/reconcile"
	"scalper-core/internal/risk"
	"scalper-core/internal/session"
	"scalper-core/internal/signal"
	"scalper-core/internal/strategy"
	"scalper-core/pkg/broker/common"
	"scalper-core/pkg/broker/paper"
	"scalper-core/pkg/broker/rest"
	"scalper-core/pkg/broker/stream"
	"scalper-core/pkg/config"
	"scalper-core/pkg/db"
)

// UpdatesQueueSize bounds the postback queue between the broker stream and
// the reconciler.
const UpdatesQueueSize = 500

// tokenFreshnessTime is the earliest same-day login time an access token must
// carry to be trusted for the session.
const tokenFreshnessTime = "08:30:00"

// Engine owns the session's moving parts for one trading day.
type Engine struct {
	cfg      *config.Config
	database *db.Database
	bus      *events.Bus

	controls  db.Controls
	params    risk.Params
	universe  *instrument.Universe
	session   *session.Session
	scheduler *session.Scheduler
	tracker   *strategy.TriggerTracker
	router    *signal.Router
	buffer    *market.Buffer

	accounts map[string]*account.State
	gateways map[string]common.Gateway
	workers  []*executor.Worker
	updates  chan common.OrderUpdate
}

// New wires a session from configuration and the database. No goroutines are
// started; call Start afterwards.
func New(ctx context.Context, cfg *config.Config, database *db.Database, bus *events.Bus) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		database: database,
		bus:      bus,
		router:   signal.NewRouter(),
		buffer:   market.NewBuffer(market.DefaultBufferSize),
		updates:  make(chan common.OrderUpdate, UpdatesQueueSize),
		accounts: make(map[string]*account.State),
		gateways: make(map[string]common.Gateway),
	}

	if err := e.loadControls(ctx); err != nil {
		return nil, err
	}
	if err := e.setupSchedule(); err != nil {
		return nil, err
	}
	if err := e.loadUniverse(ctx); err != nil {
		return nil, err
	}
	if err := e.setupAccounts(ctx); err != nil {
		return nil, err
	}

	e.tracker = strategy.NewTriggerTracker(e.params.EntryTriggerPct)
	return e, nil
}

// loadControls reads the controls row, seeding it from compiled defaults on
// first run.
func (e *Engine) loadControls(ctx context.Context) error {
	c, err := e.database.GetControls(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		c = db.Controls{
			EntryTriggerPct:       e.cfg.EntryTriggerPct,
			MaxRiskPctPerTrade:    e.cfg.MaxRiskPctPerTrade,
			MaxPositionInvestment: e.cfg.MaxPositionInvestment,
			MinPositionInvestment: e.cfg.MinPositionInvestment,
			PositionStoplossPct:   e.cfg.PositionStoplossPct,
			PositionTargetPct:     e.cfg.PositionTargetPct,
			AccountStoplossPct:    e.cfg.AccountStoplossPct,
			AccountTargetSLPct:    e.cfg.AccountTargetSLPct,
			AccountTargetPct:      e.cfg.AccountTargetPct,
			EntryTimeStart:        e.cfg.EntryTimeStart,
			EntryTimeEnd:          e.cfg.EntryTimeEnd,
			ExitTime:              e.cfg.ExitTime,
		}
		if err := e.database.UpsertControls(ctx, c); err != nil {
			return fmt.Errorf("seed controls: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load controls: %w", err)
	}

	e.controls = c
	e.params = risk.Params{
		EntryTriggerPct:       c.EntryTriggerPct,
		MaxRiskPctPerTrade:    c.MaxRiskPctPerTrade,
		MaxPositionInvestment: c.MaxPositionInvestment,
		MinPositionInvestment: c.MinPositionInvestment,
		StoplossPct:           c.PositionStoplossPct,
		TargetPct:             c.PositionTargetPct,
		AccountStoplossPct:    c.AccountStoplossPct,
		AccountTargetSLPct:    c.AccountTargetSLPct,
		AccountTargetPct:      c.AccountTargetPct,
	}
	return nil
}

// setupSchedule computes today's boundaries and registers the single-shot
// tasks that flip the session phases.
func (e *Engine) setupSchedule() error {
	now := time.Now()
	entryStart, err := session.At(now, e.controls.EntryTimeStart)
	if err != nil {
		return err
	}
	entryEnd, err := session.At(now, e.controls.EntryTimeEnd)
	if err != nil {
		return err
	}
	exitAt, err := session.At(now, e.controls.ExitTime)
	if err != nil {
		return err
	}

	e.session = session.New(entryStart)
	e.scheduler = session.NewScheduler()

	e.scheduler.AddTask("block-entries", entryEnd, func() {
		e.session.BlockEntries()
		e.bus.Publish(events.TopicEntriesBlocked, entryEnd)
		log.Println("engine: entry window closed")
	})
	e.scheduler.AddTask("liquidate-all", exitAt, e.liquidateAll)
	return nil
}

// loadUniverse refreshes the daily margin feed, then builds the instrument
// universe from the DB (seeded from the watchlist file on first run).
func (e *Engine) loadUniverse(ctx context.Context) error {
	if err := instrument.RefreshTriggerRanges(ctx, e.cfg.TriggerRangeURL, e.database); err != nil {
		log.Printf("engine: trigger range refresh failed, keeping stored margins: %v", err)
	}
	u, err := instrument.Load(ctx, e.database, e.cfg.InstrumentFile)
	if err != nil {
		return err
	}
	if u.Len() == 0 {
		return errors.New("instrument universe is empty")
	}
	e.universe = u
	log.Printf("engine: universe loaded, %d instruments", u.Len())
	return nil
}

// setupAccounts builds gateway, state, mailbox and worker for every eligible
// account.
func (e *Engine) setupAccounts(ctx context.Context) error {
	rows, err := e.eligibleAccounts(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("no eligible accounts")
	}

	for _, row := range rows {
		gw := e.gatewayFor(row)
		funds, err := gw.AvailableFunds(ctx)
		if err != nil {
			log.Printf("engine: funds fetch for %s failed, skipping account: %v", row.UserID, err)
			continue
		}

		st := account.NewState(row.UserID, funds, e.params)
		mb := signal.NewMailbox(signal.DefaultMailboxSize)
		e.accounts[row.UserID] = st
		e.gateways[row.UserID] = gw
		e.router.Register(row.UserID, mb)
		e.workers = append(e.workers, &executor.Worker{
			State:    st,
			Gateway:  gw,
			Mailbox:  mb,
			Session:  e.session,
			Universe: e.universe,
			Params:   e.params,
			Bus:      e.bus,
		})

		if err := e.database.UpdateAccountFunds(ctx, row.UserID, funds); err != nil {
			log.Printf("engine: persist funds for %s: %v", row.UserID, err)
		}
		e.bus.Publish(events.TopicAccountSnapshot, st.Snapshot())
		log.Printf("engine: account %s ready, funds=%.2f", row.UserID, funds)
	}

	if len(e.accounts) == 0 {
		return errors.New("all accounts failed setup")
	}
	return nil
}

// eligibleAccounts applies the token-freshness gate: an access token must
// have been minted today, after the pre-market login window opens. In paper
// mode a synthetic account is used when the table is empty.
func (e *Engine) eligibleAccounts(ctx context.Context) ([]db.Account, error) {
	rows, err := e.database.ListActiveAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(rows) == 0 && e.cfg.UsePaperGateway {
		return []db.Account{{UserID: "PAPER1", IsActive: true, TokenTime: time.Now()}}, nil
	}

	gate, err := session.At(time.Now(), tokenFreshnessTime)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, row := range rows {
		if !e.cfg.UsePaperGateway && row.TokenTime.Before(gate) {
			log.Printf("engine: account %s has a stale access token, skipping", row.UserID)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (e *Engine) gatewayFor(row db.Account) common.Gateway {
	if e.cfg.UsePaperGateway {
		return paper.New(row.UserID, e.cfg.PaperBalance, e.updates)
	}
	return rest.New(e.cfg.BrokerBaseURL, row.APIKey, row.AccessToken)
}

// Start launches every goroutine of the session and returns immediately.
func (e *Engine) Start(ctx context.Context) {
	rec := &reconcile.Reconciler{
		Updates:     e.updates,
		Accounts:    e.accounts,
		Gateways:    e.gateways,
		Instruments: e.universe,
		Router:      e.router,
		Bus:         e.bus,
	}
	go rec.Run(ctx)

	for _, w := range e.workers {
		go w.Run(ctx)
	}

	disp := &market.Dispatcher{
		Buffer:      e.buffer,
		Tracker:     e.tracker,
		Router:      e.router,
		Scheduler:   e.scheduler,
		Instruments: e.universe,
	}
	go disp.Run(ctx)

	e.startFeeds(ctx)
	log.Printf("engine: session started, %d accounts, %d instruments", len(e.accounts), e.universe.Len())
}

// startFeeds connects the tick and postback streams, or the mock feed.
func (e *Engine) startFeeds(ctx context.Context) {
	if e.cfg.UseMockFeed {
		feed := &stream.MockFeed{
			Tokens:     e.universe.Tokens(),
			StartPrice: 100.0,
			Interval:   500 * time.Millisecond,
			OnBatch:    e.buffer.Push,
		}
		go feed.Run(ctx)
		return
	}

	// Live streams share the first account's credentials for market data.
	apiKey, accessToken := e.streamCredentials(ctx)
	ticker := &stream.TickerClient{
		URL:         e.cfg.BrokerTickerURL,
		APIKey:      apiKey,
		AccessToken: accessToken,
		OnBatch:     e.buffer.Push,
	}
	go ticker.Run(ctx)

	upd := &stream.UpdateClient{
		URL:    e.cfg.BrokerUpdateURL,
		APIKey: apiKey,
		OnUpdate: func(u common.OrderUpdate) {
			select {
			case e.updates <- u:
			default:
				log.Printf("engine: postback queue full, dropping update for order %s", u.OrderID)
			}
		},
	}
	go upd.Run(ctx)
}

func (e *Engine) streamCredentials(ctx context.Context) (string, string) {
	rows, err := e.database.ListActiveAccounts(ctx)
	if err != nil || len(rows) == 0 {
		return "", ""
	}
	return rows[0].APIKey, rows[0].AccessToken
}

// liquidateAll routes a forced market exit for every open position of every
// account. Fired once at the session exit time.
func (e *Engine) liquidateAll() {
	log.Println("engine: session exit, liquidating all open positions")
	e.session.BlockEntries()
	for userID, st := range e.accounts {
		for _, pos := range st.OpenPositions() {
			e.router.RouteExit(userID, signal.Signal{
				Kind:     signal.ExitNow,
				Token:    pos.Token,
				Symbol:   pos.Symbol,
				Position: pos,
			})
		}
	}
}

// Controls returns the session's active controls row.
func (e *Engine) Controls() db.Controls { return e.controls }

// Snapshots returns the live monitor projection of every account.
func (e *Engine) Snapshots() []account.MonitorSnapshot {
	out := make([]account.MonitorSnapshot, 0, len(e.accounts))
	for _, st := range e.accounts {
		out = append(out, st.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Positions returns a read-only view of every open position.
func (e *Engine) Positions() []account.Position {
	var out []account.Position
	for _, st := range e.accounts {
		out = append(out, st.PositionViews()...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// EntriesAllowed reports the session's global entry gate.
func (e *Engine) EntriesAllowed() bool { return e.session.EntriesAllowed() }

// TicksDropped reports how many tick batches the buffer shed.
func (e *Engine) TicksDropped() uint64 { return e.buffer.Dropped() }
