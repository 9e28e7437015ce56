package market

import "testing"

func TestPhase_DayRunsItsFullLength(t *testing.T) {
	p := Phase{Kind: PhaseDay}
	for i := 0; i < DayLength-1; i++ {
		p = p.Next()
		if !p.IsDay() {
			t.Fatalf("flipped to night after %d ticks", i+1)
		}
	}
	p = p.Next()
	if p.IsDay() {
		t.Fatal("day did not end after its full length")
	}
	if p.Cycle != 0 {
		t.Errorf("day to night advanced the cycle: %d", p.Cycle)
	}
	if p.Counter != 0 {
		t.Errorf("night counter = %d, want 0", p.Counter)
	}
}

func TestPhase_NightToDayAdvancesCycle(t *testing.T) {
	p := Phase{Kind: PhaseNight, Cycle: 3, Counter: NightLength - 1}
	p = p.Next()
	if !p.IsDay() {
		t.Fatal("night did not end")
	}
	if p.Cycle != 4 {
		t.Errorf("cycle = %d, want 4", p.Cycle)
	}
}

func TestPhase_FullCycleLength(t *testing.T) {
	p := Phase{Kind: PhaseDay}
	for i := 0; i < DayLength+NightLength; i++ {
		p = p.Next()
	}
	if !p.IsDay() || p.Cycle != 1 || p.Counter != 0 {
		t.Errorf("after one full cycle: %+v", p)
	}
}

func TestPhase_FormattedClock(t *testing.T) {
	p := Phase{Kind: PhaseDay, Cycle: 0, Counter: 0}
	if got := p.Formatted(); got != "  1 Spring 2025 06:00" {
		t.Errorf("day start = %q", got)
	}

	// 3 hours and 45 minutes into the day.
	p.Counter = 15
	if got := p.Formatted(); got != "  1 Spring 2025 09:45" {
		t.Errorf("mid-morning = %q", got)
	}

	night := Phase{Kind: PhaseNight, Cycle: 0, Counter: 0}
	if got := night.Formatted(); got != "  1 Spring 2025 22:00" {
		t.Errorf("night start = %q", got)
	}
}

func TestPhase_SeasonRollsEveryNinetyCycles(t *testing.T) {
	p := Phase{Kind: PhaseDay, Cycle: 90}
	if got := p.Formatted(); got != " 91 Summer 2025 06:00" {
		t.Errorf("cycle 90 = %q", got)
	}
}
