package market

import (
	"fmt"

	"github.com/stonkgame/market-engine/internal/stonk"
)

// Phase lengths in ticks. One tick is 15 simulated minutes; the trading day
// starts at 06:00 and runs 16 hours, the night covers the remaining 8.
const (
	DayLength   = stonk.DayTicks
	NightLength = stonk.NightTicks

	dayStartingHour = 6
	dayLengthHours  = 16
)

// PhaseKind is either day or night; exactly one is active.
type PhaseKind string

const (
	PhaseDay   PhaseKind = "day"
	PhaseNight PhaseKind = "night"
)

// Phase is the day/night state machine position. Counter is bounded by the
// active phase's length; on overflow the phase flips, and Cycle advances on
// the Night to Day transition.
type Phase struct {
	Kind    PhaseKind `json:"kind"`
	Cycle   int64     `json:"cycle"`
	Counter int64     `json:"counter"`
}

// Next returns the phase after one tick.
func (p Phase) Next() Phase {
	switch p.Kind {
	case PhaseDay:
		if p.Counter < DayLength-1 {
			return Phase{Kind: PhaseDay, Cycle: p.Cycle, Counter: p.Counter + 1}
		}
		return Phase{Kind: PhaseNight, Cycle: p.Cycle, Counter: 0}
	case PhaseNight:
		if p.Counter < NightLength-1 {
			return Phase{Kind: PhaseNight, Cycle: p.Cycle, Counter: p.Counter + 1}
		}
		return Phase{Kind: PhaseDay, Cycle: p.Cycle + 1, Counter: 0}
	default:
		return Phase{Kind: PhaseDay}
	}
}

// IsDay reports whether the day phase is active.
func (p Phase) IsDay() bool { return p.Kind == PhaseDay }

var seasons = [4]string{"Spring", "Summer", "Fall", "Winter"}

// clock returns the simulated hour and minute for the current counter.
func (p Phase) clock() (hour, minute int64) {
	switch p.Kind {
	case PhaseNight:
		hour = (dayStartingHour + dayLengthHours + p.Counter/stonk.TicksPerHour) % 24
	default:
		hour = (dayStartingHour + p.Counter/stonk.TicksPerHour) % 24
	}
	return hour, (p.Counter % stonk.TicksPerHour) * 15
}

// Formatted renders the in-game calendar line shown to sessions, e.g.
// "12 Spring 2025 09:45".
func (p Phase) Formatted() string {
	hour, minute := p.clock()
	day := p.Cycle%365 + 1
	season := seasons[(p.Cycle/90)%4]
	year := 2024 + p.Cycle/90/4 + 1
	return fmt.Sprintf("%3d %-6s %d %02d:%02d", day, season, year, hour, minute)
}
