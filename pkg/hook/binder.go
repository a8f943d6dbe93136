package hook

import (
	"context"
	"errors"
)

// Bindings route raw key events onto recorder callbacks. Gameplay keys become
// keydown/keyup calls; the reserved keys fire toggle and marker callbacks on
// press only.
type Bindings struct {
	Gameplay      []string
	SessionToggle string
	FightStart    string
	FightEnd      string

	OnKey    func(kind string, key string)
	OnMarker func(kind string)
	OnToggle func()
}

// Binder consumes a Source and dispatches normalized events.
type Binder struct {
	gameplay    map[string]struct{}
	toggle      string
	fightStart  string
	fightEnd    string
	onKey       func(kind string, key string)
	onMarker    func(kind string)
	onToggle    func()
	pressedKeys map[string]struct{}
}

// NewBinder validates bindings and returns a binder with an empty key-state set.
func NewBinder(b Bindings) (*Binder, error) {
	if len(b.Gameplay) == 0 {
		return nil, errors.New("at least one gameplay key must be bound")
	}
	gameplay := make(map[string]struct{}, len(b.Gameplay))
	for _, key := range b.Gameplay {
		gameplay[NormalizeKey(key)] = struct{}{}
	}
	return &Binder{
		gameplay:    gameplay,
		toggle:      NormalizeKey(b.SessionToggle),
		fightStart:  NormalizeKey(b.FightStart),
		fightEnd:    NormalizeKey(b.FightEnd),
		onKey:       b.OnKey,
		onMarker:    b.OnMarker,
		onToggle:    b.OnToggle,
		pressedKeys: make(map[string]struct{}),
	}, nil
}

// Run streams events from source and dispatches them until the stream ends or
// the context is cancelled.
func (b *Binder) Run(ctx context.Context, source Source) error {
	if source == nil {
		return errors.New("event source must be provided")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return source.Stream(ctx, func(event KeyEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.Dispatch(event)
		return nil
	})
}

// Dispatch routes one event. OS key-repeat shows up as repeated presses with
// no intervening release; those are suppressed here so the sink downstream
// never sees duplicate keydowns for a held key.
func (b *Binder) Dispatch(event KeyEvent) {
	key := NormalizeKey(event.Key)
	if key == "" {
		return
	}

	switch event.Kind {
	case KindPress:
		if _, held := b.pressedKeys[key]; held {
			return
		}
		b.pressedKeys[key] = struct{}{}

		switch key {
		case b.toggle:
			if b.onToggle != nil {
				b.onToggle()
			}
		case b.fightStart:
			if b.onMarker != nil {
				b.onMarker("fight_start")
			}
		case b.fightEnd:
			if b.onMarker != nil {
				b.onMarker("fight_end")
			}
		default:
			if _, ok := b.gameplay[key]; ok && b.onKey != nil {
				b.onKey("keydown", key)
			}
		}
	case KindRelease:
		delete(b.pressedKeys, key)
		if _, ok := b.gameplay[key]; ok && b.onKey != nil {
			b.onKey("keyup", key)
		}
	}
}
