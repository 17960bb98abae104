package quad

import (
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// Action is the kind of pointer event.
type Action int

const (
	ActionDown Action = iota
	ActionMove
	ActionUp
	ActionLeave
)

var actionNames = [...]string{"down", "move", "up", "leave"}

func (a Action) String() string {
	if a < ActionDown || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// ParseAction maps "down", "move", "up" or "leave" to an Action.
func ParseAction(s string) (Action, bool) {
	for i, n := range actionNames {
		if n == s {
			return Action(i), true
		}
	}
	return 0, false
}

// PointerEvent is a pointer or touch sample relative to the display surface.
type PointerEvent struct {
	Action Action
	X      float64
	Y      float64
	Touch  bool
}

// MagnifierAction tells the host what to do with the magnifier after an event.
type MagnifierAction int

const (
	MagnifierKeep MagnifierAction = iota
	MagnifierShow
	MagnifierHide
)

// Update describes the effects of one event. When Magnifier is MagnifierShow,
// Corner is the dragged corner, Position its display location and Pointer the
// raw pointer location.
type Update struct {
	Redraw          bool
	Magnifier       MagnifierAction
	SuppressDefault bool
	Corner          CornerID
	Position        utils.Point
	Pointer         utils.Point
}

// DragController runs the Idle / Dragging state machine over a QuadState.
type DragController struct {
	state     *QuadState
	hitRadius float64
}

// NewDragController drives state. A non-positive hitRadius uses DefaultHitRadius.
func NewDragController(state *QuadState, hitRadius float64) *DragController {
	if hitRadius <= 0 {
		hitRadius = DefaultHitRadius
	}
	return &DragController{state: state, hitRadius: hitRadius}
}

// State returns the controlled state.
func (d *DragController) State() *QuadState { return d.state }

// Handle applies ev and reports what the host has to refresh.
func (d *DragController) Handle(ev PointerEvent) Update {
	p := utils.Pt(ev.X, ev.Y)
	switch ev.Action {
	case ActionDown:
		c, ok := HitTest(d.state.Corners, p, d.hitRadius)
		if !ok {
			d.state.Selected = NoCorner
			return Update{SuppressDefault: ev.Touch, Corner: NoCorner}
		}
		d.state.Selected = c
		return Update{
			Redraw:          true,
			Magnifier:       MagnifierShow,
			SuppressDefault: ev.Touch,
			Corner:          c,
			Position:        d.state.Corners[c],
			Pointer:         p,
		}

	case ActionMove:
		if !d.state.Dragging() {
			return Update{Corner: NoCorner}
		}
		c := d.state.Selected
		pos := d.state.Move(c, p)
		return Update{
			Redraw:          true,
			Magnifier:       MagnifierShow,
			SuppressDefault: ev.Touch,
			Corner:          c,
			Position:        pos,
			Pointer:         p,
		}

	case ActionUp, ActionLeave:
		wasDragging := d.state.Dragging()
		d.state.Selected = NoCorner
		if !wasDragging {
			return Update{Corner: NoCorner}
		}
		return Update{Redraw: true, Magnifier: MagnifierHide, Corner: NoCorner}
	}
	return Update{Corner: NoCorner}
}
