package db

import (
	"context"
	"database/sql"
	"time"
)

// Account represents a linked broker account row.
type Account struct {
	UserID        string
	APIKey        string
	AccessToken   string
	TokenTime     time.Time
	FundAvailable float64
	IsActive      bool
}

// Instrument represents a tradable instrument row.
type Instrument struct {
	Token  uint32
	Symbol string
	Margin float64
}

// Controls holds the session risk parameters. A single row with id=1.
type Controls struct {
	EntryTriggerPct       float64
	MaxRiskPctPerTrade    float64
	MaxPositionInvestment float64
	MinPositionInvestment float64
	PositionStoplossPct   float64
	PositionTargetPct     float64
	AccountStoplossPct    float64
	AccountTargetSLPct    float64
	AccountTargetPct      float64
	EntryTimeStart        string
	EntryTimeEnd          string
	ExitTime              string
}

// LiveMonitor is the per-account observability projection.
type LiveMonitor struct {
	UserID           string    `json:"user_id"`
	InitialValue     float64   `json:"initial_value"`
	CurrentValue     float64   `json:"current_value"`
	Stoploss         float64   `json:"stoploss"`
	NetProfitPercent float64   `json:"net_profit_percent"`
	ValueAtRisk      float64   `json:"value_at_risk"`
	Commission       float64   `json:"commission"`
	Profit           float64   `json:"profit"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ListActiveAccounts returns all accounts flagged active.
func (d *Database) ListActiveAccounts(ctx context.Context) ([]Account, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT user_id, api_key, access_token, token_time, fund_available, is_active
		FROM accounts WHERE is_active = 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		var active int
		var tokenTime sql.NullTime
		if err := rows.Scan(&a.UserID, &a.APIKey, &a.AccessToken, &tokenTime, &a.FundAvailable, &active); err != nil {
			return nil, err
		}
		a.TokenTime = tokenTime.Time
		a.IsActive = active == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAccountFunds persists the latest available-funds figure.
func (d *Database) UpdateAccountFunds(ctx context.Context, userID string, funds float64) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE accounts SET fund_available = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?
	`, funds, userID)
	return err
}

// ListActiveInstruments returns the tradable universe.
func (d *Database) ListActiveInstruments(ctx context.Context) ([]Instrument, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT token, symbol, margin FROM instruments WHERE is_active = 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Instrument
	for rows.Next() {
		var ins Instrument
		if err := rows.Scan(&ins.Token, &ins.Symbol, &ins.Margin); err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}

// UpsertInstrument inserts or refreshes an instrument row.
func (d *Database) UpsertInstrument(ctx context.Context, ins Instrument) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO instruments (token, symbol, margin, is_active, updated_at)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(token) DO UPDATE SET
			symbol = excluded.symbol,
			margin = excluded.margin,
			updated_at = CURRENT_TIMESTAMP
	`, ins.Token, ins.Symbol, ins.Margin)
	return err
}

// UpdateInstrumentMargin sets the leverage multiplier for a symbol.
func (d *Database) UpdateInstrumentMargin(ctx context.Context, symbol string, margin float64) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE instruments SET margin = ?, updated_at = CURRENT_TIMESTAMP WHERE symbol = ?
	`, margin, symbol)
	return err
}

// GetControls loads the controls row. sql.ErrNoRows when absent.
func (d *Database) GetControls(ctx context.Context) (Controls, error) {
	var c Controls
	err := d.DB.QueryRowContext(ctx, `
		SELECT entry_trigger_pct, max_risk_pct_per_trade, max_position_investment,
		       min_position_investment, position_stoploss_pct, position_target_pct,
		       account_stoploss_pct, account_target_sl_pct, account_target_pct,
		       entry_time_start, entry_time_end, exit_time
		FROM controls WHERE id = 1
	`).Scan(
		&c.EntryTriggerPct, &c.MaxRiskPctPerTrade, &c.MaxPositionInvestment,
		&c.MinPositionInvestment, &c.PositionStoplossPct, &c.PositionTargetPct,
		&c.AccountStoplossPct, &c.AccountTargetSLPct, &c.AccountTargetPct,
		&c.EntryTimeStart, &c.EntryTimeEnd, &c.ExitTime,
	)
	return c, err
}

// UpsertControls writes the controls row.
func (d *Database) UpsertControls(ctx context.Context, c Controls) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO controls (
			id, entry_trigger_pct, max_risk_pct_per_trade, max_position_investment,
			min_position_investment, position_stoploss_pct, position_target_pct,
			account_stoploss_pct, account_target_sl_pct, account_target_pct,
			entry_time_start, entry_time_end, exit_time, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			entry_trigger_pct = excluded.entry_trigger_pct,
			max_risk_pct_per_trade = excluded.max_risk_pct_per_trade,
			max_position_investment = excluded.max_position_investment,
			min_position_investment = excluded.min_position_investment,
			position_stoploss_pct = excluded.position_stoploss_pct,
			position_target_pct = excluded.position_target_pct,
			account_stoploss_pct = excluded.account_stoploss_pct,
			account_target_sl_pct = excluded.account_target_sl_pct,
			account_target_pct = excluded.account_target_pct,
			entry_time_start = excluded.entry_time_start,
			entry_time_end = excluded.entry_time_end,
			exit_time = excluded.exit_time,
			updated_at = CURRENT_TIMESTAMP
	`,
		c.EntryTriggerPct, c.MaxRiskPctPerTrade, c.MaxPositionInvestment,
		c.MinPositionInvestment, c.PositionStoplossPct, c.PositionTargetPct,
		c.AccountStoplossPct, c.AccountTargetSLPct, c.AccountTargetPct,
		c.EntryTimeStart, c.EntryTimeEnd, c.ExitTime,
	)
	return err
}

// UpsertLiveMonitor writes the per-account monitor projection.
func (d *Database) UpsertLiveMonitor(ctx context.Context, m LiveMonitor) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO live_monitor (
			user_id, initial_value, current_value, stoploss, net_profit_percent,
			value_at_risk, commission, profit, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			initial_value = excluded.initial_value,
			current_value = excluded.current_value,
			stoploss = excluded.stoploss,
			net_profit_percent = excluded.net_profit_percent,
			value_at_risk = excluded.value_at_risk,
			commission = excluded.commission,
			profit = excluded.profit,
			updated_at = CURRENT_TIMESTAMP
	`,
		m.UserID, m.InitialValue, m.CurrentValue, m.Stoploss, m.NetProfitPercent,
		m.ValueAtRisk, m.Commission, m.Profit,
	)
	return err
}

// ListLiveMonitors returns every account's latest projection.
func (d *Database) ListLiveMonitors(ctx context.Context) ([]LiveMonitor, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT user_id, initial_value, current_value, stoploss, net_profit_percent,
		       value_at_risk, commission, profit, updated_at
		FROM live_monitor ORDER BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LiveMonitor
	for rows.Next() {
		var m LiveMonitor
		if err := rows.Scan(&m.UserID, &m.InitialValue, &m.CurrentValue, &m.Stoploss,
			&m.NetProfitPercent, &m.ValueAtRisk, &m.Commission, &m.Profit, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
