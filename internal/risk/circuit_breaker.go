package risk

import (
	"math"

	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// GateState is the state of the drawdown circuit breaker.
type GateState int

const (
	// GateNormal allows new entries.
	GateNormal GateState = iota
	// GateRestricted rejects new entries; open trades keep being managed.
	GateRestricted
	// GateHalted rejects entries and requires all open trades closed.
	GateHalted
)

// String returns the string representation of the gate state.
func (s GateState) String() string {
	switch s {
	case GateNormal:
		return "normal"
	case GateRestricted:
		return "restricted"
	case GateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// CircuitConfig holds the drawdown thresholds for the gate. All values are
// fractions of equity.
type CircuitConfig struct {
	// Restriction thresholds per horizon.
	DailyLimit     float64 `json:"daily_limit" mapstructure:"daily_limit"`
	WeeklyLimit    float64 `json:"weekly_limit" mapstructure:"weekly_limit"`
	InceptionLimit float64 `json:"inception_limit" mapstructure:"inception_limit"`
	// HaltLimit halts trading when any horizon's drawdown exceeds it.
	HaltLimit float64 `json:"halt_limit" mapstructure:"halt_limit"`
	// Hysteresis is subtracted from a threshold before recovery is allowed,
	// so the gate does not flap at the boundary.
	Hysteresis float64 `json:"hysteresis" mapstructure:"hysteresis"`
	// WeeklyWindow is the number of trading days in the weekly horizon.
	WeeklyWindow int `json:"weekly_window" mapstructure:"weekly_window"`
}

// DefaultCircuitConfig returns the documented limits: restrict at 5% daily
// drawdown, halt at 10%.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		DailyLimit:     0.05,
		WeeklyLimit:    0.08,
		InceptionLimit: 0.15,
		HaltLimit:      0.10,
		Hysteresis:     0.01,
		WeeklyWindow:   5,
	}
}

// Drawdowns is the per-horizon drawdown snapshot the gate last evaluated.
type Drawdowns struct {
	Daily     float64 `json:"daily"`
	Weekly    float64 `json:"weekly"`
	Inception float64 `json:"inception"`
}

// Worst returns the largest of the three drawdowns.
func (d Drawdowns) Worst() float64 {
	return math.Max(d.Daily, math.Max(d.Weekly, d.Inception))
}

// CircuitBreaker is the stateful risk gate consulted before every entry.
// This is the only place trading is ever forcibly stopped.
//
// Each backtest run owns exactly one instance; the type is not written for
// concurrent use.
type CircuitBreaker struct {
	cfg          CircuitConfig
	state        GateState
	equity       []float64 // trailing equity values, newest last
	last         Drawdowns
	onTransition func(from, to GateState, dd Drawdowns)
}

// NewCircuitBreaker creates a gate in the normal state.
func NewCircuitBreaker(cfg CircuitConfig) *CircuitBreaker {
	if cfg.WeeklyWindow <= 0 {
		cfg.WeeklyWindow = 5
	}
	return &CircuitBreaker{cfg: cfg, state: GateNormal}
}

// SetTransitionCallback registers a callback invoked on every state change.
func (cb *CircuitBreaker) SetTransitionCallback(fn func(from, to GateState, dd Drawdowns)) {
	cb.onTransition = fn
}

// State returns the current gate state.
func (cb *CircuitBreaker) State() GateState {
	return cb.state
}

// Drawdowns returns the horizon drawdowns from the last Observe call.
func (cb *CircuitBreaker) Drawdowns() Drawdowns {
	return cb.last
}

// AllowEntry reports whether new entries are currently permitted.
func (cb *CircuitBreaker) AllowEntry() bool {
	return cb.state == GateNormal
}

// Observe feeds one equity-curve point into the gate and returns the
// resulting state. Called once per simulated trading day, after open trades
// have been managed.
func (cb *CircuitBreaker) Observe(point types.EquityCurvePoint) GateState {
	dd := Drawdowns{Inception: point.DrawdownPct}

	if n := len(cb.equity); n > 0 {
		dd.Daily = drawdownFrom(cb.equity[n-1], point.Equity)

		start := n - cb.cfg.WeeklyWindow
		if start < 0 {
			start = 0
		}
		weekPeak := point.Equity
		for _, e := range cb.equity[start:] {
			if e > weekPeak {
				weekPeak = e
			}
		}
		dd.Weekly = drawdownFrom(weekPeak, point.Equity)
	}
	cb.last = dd

	cb.equity = append(cb.equity, point.Equity)
	if len(cb.equity) > cb.cfg.WeeklyWindow+1 {
		cb.equity = cb.equity[1:]
	}

	cb.transition(dd)
	return cb.state
}

// transition applies the threshold rules with hysteresis on recovery.
func (cb *CircuitBreaker) transition(dd Drawdowns) {
	restricted := dd.Daily > cb.cfg.DailyLimit ||
		dd.Weekly > cb.cfg.WeeklyLimit ||
		dd.Inception > cb.cfg.InceptionLimit
	halted := dd.Worst() > cb.cfg.HaltLimit

	switch cb.state {
	case GateNormal:
		if halted {
			cb.changeState(GateHalted, dd)
		} else if restricted {
			cb.changeState(GateRestricted, dd)
		}
	case GateRestricted:
		if halted {
			cb.changeState(GateHalted, dd)
		} else if cb.recovered(dd) {
			cb.changeState(GateNormal, dd)
		}
	case GateHalted:
		if dd.Worst() < cb.cfg.HaltLimit-cb.cfg.Hysteresis {
			if cb.recovered(dd) {
				cb.changeState(GateNormal, dd)
			} else {
				cb.changeState(GateRestricted, dd)
			}
		}
	}
}

// recovered reports whether every horizon is back below its threshold with
// the hysteresis margin applied.
func (cb *CircuitBreaker) recovered(dd Drawdowns) bool {
	return dd.Daily < cb.cfg.DailyLimit-cb.cfg.Hysteresis &&
		dd.Weekly < cb.cfg.WeeklyLimit-cb.cfg.Hysteresis &&
		dd.Inception < cb.cfg.InceptionLimit-cb.cfg.Hysteresis
}

func (cb *CircuitBreaker) changeState(to GateState, dd Drawdowns) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onTransition != nil {
		cb.onTransition(from, to, dd)
	}
}

// Reset returns the gate to the normal state and clears its history.
func (cb *CircuitBreaker) Reset() {
	cb.state = GateNormal
	cb.equity = nil
	cb.last = Drawdowns{}
}

func drawdownFrom(peak, current float64) float64 {
	if peak <= 0 || current >= peak {
		return 0
	}
	return (peak - current) / peak
}
