package session

import "time"

// fightTimer accumulates the duration spent between matched fight_start and
// fight_end markers. It is not safe for concurrent use on its own; the
// Recorder mutates it only under its stats mutex.
type fightTimer struct {
	accumulated time.Duration
	openedAt    time.Time
	open        bool
}

func (t *fightTimer) reset() {
	t.accumulated = 0
	t.open = false
	t.openedAt = time.Time{}
}

// onMarker folds one marker into the timer. A second fight_start while one is
// open and a fight_end with nothing open are both silent no-ops.
func (t *fightTimer) onMarker(kind string, now time.Time) {
	switch kind {
	case MarkerFightStart:
		if t.open {
			return
		}
		t.open = true
		t.openedAt = now
	case MarkerFightEnd:
		if !t.open {
			return
		}
		t.accumulated += now.Sub(t.openedAt)
		t.open = false
	}
}

// elapsed reports matched time plus the live partial duration of an open fight.
func (t *fightTimer) elapsed(now time.Time) time.Duration {
	total := t.accumulated
	if t.open {
		total += now.Sub(t.openedAt)
	}
	return total
}

// finalize closes an open fight as if fight_end fired at now.
func (t *fightTimer) finalize(now time.Time) {
	t.onMarker(MarkerFightEnd, now)
}
