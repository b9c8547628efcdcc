package defaults

// TradingModes lists the four trading modes every defaults file must define,
// in display order.
var TradingModes = []string{"ultra_fast", "scalp", "swing", "position"}

// ModeConfig holds the complete default configuration for a single trading
// mode. Each group maps to a collapsible section in the admin editor.
type ModeConfig struct {
	ModeName string `json:"mode_name"`
	Enabled  bool   `json:"enabled"`

	Timeframe      *TimeframeGroup      `json:"timeframe"`
	Confidence     *ConfidenceGroup     `json:"confidence"`
	Size           *SizeGroup           `json:"size"`
	SLTP           *SLTPGroup           `json:"sltp"`
	CircuitBreaker *CircuitBreakerGroup `json:"circuit_breaker"`
	Risk           *RiskGroup           `json:"risk"`
	Hedge          *HedgeGroup          `json:"hedge"`
	Averaging      *AveragingGroup      `json:"averaging"`
	StaleRelease   *StaleReleaseGroup   `json:"stale_release"`
}

// TimeframeGroup holds the chart timeframes a mode analyzes.
type TimeframeGroup struct {
	TrendTimeframe    string `json:"trend_timeframe"`
	EntryTimeframe    string `json:"entry_timeframe"`
	AnalysisTimeframe string `json:"analysis_timeframe"`
}

// ConfidenceGroup holds the signal confidence thresholds for a mode.
type ConfidenceGroup struct {
	MinConfidence   float64 `json:"min_confidence"`
	HighConfidence  float64 `json:"high_confidence"`
	UltraConfidence float64 `json:"ultra_confidence"`
}

// SizeGroup holds position sizing settings for a mode.
type SizeGroup struct {
	BaseSizeUSD        float64 `json:"base_size_usd"`
	MaxSizeUSD         float64 `json:"max_size_usd"`
	MaxPositions       int     `json:"max_positions"`
	Leverage           int     `json:"leverage"`
	SizeMultiplierLo   float64 `json:"size_multiplier_lo"`
	SizeMultiplierHi   float64 `json:"size_multiplier_hi"`
	SafetyMargin       float64 `json:"safety_margin"`
	MinBalanceUSD      float64 `json:"min_balance_usd"`
	MinPositionSizeUSD float64 `json:"min_position_size_usd"`
}

// SLTPGroup holds stop-loss and take-profit settings for a mode.
type SLTPGroup struct {
	StopLossPercent        float64   `json:"stop_loss_percent"`
	TakeProfitPercent      float64   `json:"take_profit_percent"`
	TrailingStopEnabled    bool      `json:"trailing_stop_enabled"`
	TrailingStopPercent    float64   `json:"trailing_stop_percent"`
	TrailingStopActivation float64   `json:"trailing_stop_activation"`
	MaxHoldDuration        string    `json:"max_hold_duration"`
	UseSingleTP            bool      `json:"use_single_tp"`
	SingleTPPercent        float64   `json:"single_tp_percent"`
	TPGainLevels           []float64 `json:"tp_gain_levels"`
	TPAllocation           []float64 `json:"tp_allocation"`
	MarginType             string    `json:"margin_type"` // "CROSS" or "ISOLATED"
	IsolatedMarginPercent  float64   `json:"isolated_margin_percent"`
}

// CircuitBreakerGroup holds per-mode circuit breaker limits.
type CircuitBreakerGroup struct {
	MaxLossPerHour       float64 `json:"max_loss_per_hour"`
	MaxLossPerDay        float64 `json:"max_loss_per_day"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	CooldownMinutes      int     `json:"cooldown_minutes"`
	MaxTradesPerMinute   int     `json:"max_trades_per_minute"`
	MaxTradesPerHour     int     `json:"max_trades_per_hour"`
	MaxTradesPerDay      int     `json:"max_trades_per_day"`
	WinRateCheckAfter    int     `json:"win_rate_check_after"`
	MinWinRate           float64 `json:"min_win_rate"`
}

// RiskGroup holds per-mode risk management settings.
type RiskGroup struct {
	RiskLevel                  string  `json:"risk_level"`
	RiskMultiplierConservative float64 `json:"risk_multiplier_conservative"`
	RiskMultiplierModerate     float64 `json:"risk_multiplier_moderate"`
	RiskMultiplierAggressive   float64 `json:"risk_multiplier_aggressive"`
	MaxDrawdownPercent         float64 `json:"max_drawdown_percent"`
	MaxDailyLossPercent        float64 `json:"max_daily_loss_percent"`
}

// HedgeGroup holds hedge mode settings (LONG + SHORT simultaneously).
type HedgeGroup struct {
	AllowHedge                 bool    `json:"allow_hedge"`
	MinConfidenceForHedge      float64 `json:"min_confidence_for_hedge"`
	ExistingMustBeInProfit     float64 `json:"existing_must_be_in_profit"`
	MaxHedgeSizePercent        float64 `json:"max_hedge_size_percent"`
	AllowSameModeHedge         bool    `json:"allow_same_mode_hedge"`
	MaxTotalExposureMultiplier float64 `json:"max_total_exposure_multiplier"`
}

// AveragingGroup holds position averaging settings.
type AveragingGroup struct {
	AllowAveraging          bool    `json:"allow_averaging"`
	AverageUpProfitPercent  float64 `json:"average_up_profit_percent"`
	AverageDownLossPercent  float64 `json:"average_down_loss_percent"`
	AddSizePercent          float64 `json:"add_size_percent"`
	MaxAverages             int     `json:"max_averages"`
	MinConfidenceForAverage float64 `json:"min_confidence_for_average"`
}

// StaleReleaseGroup holds stale position release (capital liberation)
// settings.
type StaleReleaseGroup struct {
	Enabled              bool    `json:"enabled"`
	MaxHoldDuration      string  `json:"max_hold_duration"`
	MinProfitToKeep      float64 `json:"min_profit_to_keep"`
	MaxLossToForceClose  float64 `json:"max_loss_to_force_close"`
	StaleZoneLo          float64 `json:"stale_zone_lo"`
	StaleZoneHi          float64 `json:"stale_zone_hi"`
	StaleZoneCloseAction string  `json:"stale_zone_close_action"` // "close", "reduce_50", "wait_signal"
}
