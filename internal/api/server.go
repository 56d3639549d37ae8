// Package api exposes the read/control HTTP surface over gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scalper-core/internal/engine"
	"scalper-core/pkg/db"
)

// Server serves monitoring and controls endpoints. It only reads trading
// state; controls updates land in the DB and apply at the next session start.
type Server struct {
	Engine   *engine.Engine
	Database *db.Database

	router *gin.Engine
}

// NewServer builds the HTTP router.
func NewServer(eng *engine.Engine, database *db.Database) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{Engine: eng, Database: database}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(RateLimit(20, 40))

	r.GET("/health", s.health)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", s.status)
		apiGroup.GET("/monitors", s.monitors)
		apiGroup.GET("/positions", s.positions)
		apiGroup.GET("/controls", s.getControls)
		apiGroup.PUT("/controls", s.putControls)
	}

	s.router = r
	return s
}

// Run blocks serving on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries_allowed": s.Engine.EntriesAllowed(),
		"ticks_dropped":   s.Engine.TicksDropped(),
	})
}

// monitors serves the persisted per-account projections.
func (s *Server) monitors(c *gin.Context) {
	rows, err := s.Database.ListLiveMonitors(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"monitors": rows})
}

type positionView struct {
	UserID      string  `json:"user_id"`
	Token       uint32  `json:"instrument_token"`
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPending bool    `json:"exit_pending"`
}

func (s *Server) positions(c *gin.Context) {
	open := s.Engine.Positions()
	out := make([]positionView, 0, len(open))
	for _, p := range open {
		out = append(out, positionView{
			UserID:      p.UserID,
			Token:       p.Token,
			Symbol:      p.Symbol,
			Quantity:    p.Quantity,
			EntryPrice:  p.EntryPrice,
			ExitPending: p.ExitPending,
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func (s *Server) getControls(c *gin.Context) {
	ctl, err := s.Database.GetControls(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, controlsToJSON(ctl))
}

type controlsJSON struct {
	EntryTriggerPct       float64 `json:"entry_trigger_pct" binding:"gt=0"`
	MaxRiskPctPerTrade    float64 `json:"max_risk_pct_per_trade" binding:"gt=0"`
	MaxPositionInvestment float64 `json:"max_position_investment" binding:"gt=0"`
	MinPositionInvestment float64 `json:"min_position_investment" binding:"gte=0"`
	PositionStoplossPct   float64 `json:"position_stoploss_pct" binding:"gt=0"`
	PositionTargetPct     float64 `json:"position_target_pct" binding:"gt=0"`
	AccountStoplossPct    float64 `json:"account_stoploss_pct" binding:"gt=0"`
	AccountTargetSLPct    float64 `json:"account_target_sl_pct" binding:"gte=0"`
	AccountTargetPct      float64 `json:"account_target_pct" binding:"gt=0"`
	EntryTimeStart        string  `json:"entry_time_start" binding:"required"`
	EntryTimeEnd          string  `json:"entry_time_end" binding:"required"`
	ExitTime              string  `json:"exit_time" binding:"required"`
}

func controlsToJSON(c db.Controls) controlsJSON {
	return controlsJSON{
		EntryTriggerPct:       c.EntryTriggerPct,
		MaxRiskPctPerTrade:    c.MaxRiskPctPerTrade,
		MaxPositionInvestment: c.MaxPositionInvestment,
		MinPositionInvestment: c.MinPositionInvestment,
		PositionStoplossPct:   c.PositionStoplossPct,
		PositionTargetPct:     c.PositionTargetPct,
		AccountStoplossPct:    c.AccountStoplossPct,
		AccountTargetSLPct:    c.AccountTargetSLPct,
		AccountTargetPct:      c.AccountTargetPct,
		EntryTimeStart:        c.EntryTimeStart,
		EntryTimeEnd:          c.EntryTimeEnd,
		ExitTime:              c.ExitTime,
	}
}

// putControls persists new session parameters. The running session keeps its
// loaded values; the update takes effect at the next session start.
func (s *Server) putControls(c *gin.Context) {
	var in controlsJSON
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctl := db.Controls{
		EntryTriggerPct:       in.EntryTriggerPct,
		MaxRiskPctPerTrade:    in.MaxRiskPctPerTrade,
		MaxPositionInvestment: in.MaxPositionInvestment,
		MinPositionInvestment: in.MinPositionInvestment,
		PositionStoplossPct:   in.PositionStoplossPct,
		PositionTargetPct:     in.PositionTargetPct,
		AccountStoplossPct:    in.AccountStoplossPct,
		AccountTargetSLPct:    in.AccountTargetSLPct,
		AccountTargetPct:      in.AccountTargetPct,
		EntryTimeStart:        in.EntryTimeStart,
		EntryTimeEnd:          in.EntryTimeEnd,
		ExitTime:              in.ExitTime,
	}
	if err := s.Database.UpsertControls(c.Request.Context(), ctl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "controls saved; applied at next session start"})
}
