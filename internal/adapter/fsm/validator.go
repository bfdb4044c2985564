package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/soukhub/vitrine/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// The two axes are independent machines, so each gets its own event table
// built from the domain transition declarations.
var (
	slotEvents  = buildEvents(slotDescs())
	draftEvents = buildEvents(draftDescs())
)

type transitionDesc struct {
	event string
	src   string
	dst   string
}

func slotDescs() []transitionDesc {
	out := make([]transitionDesc, 0, len(domain.SlotTransitions))
	for _, t := range domain.SlotTransitions {
		out = append(out, transitionDesc{event: string(t.Event), src: string(t.Src), dst: string(t.Dst)})
	}
	return out
}

func draftDescs() []transitionDesc {
	out := make([]transitionDesc, 0, len(domain.DraftTransitions))
	for _, t := range domain.DraftTransitions {
		out = append(out, transitionDesc{event: string(t.Event), src: string(t.Src), dst: string(t.Dst)})
	}
	return out
}

// buildEvents converts transition declarations into looplab/fsm EventDesc
// format. It consolidates transitions with the same event+destination into
// a single EventDesc with multiple source states (e.g., EventMaintenanceOn
// from "empty" and "live" both go to "maintenance").
func buildEvents(descs []transitionDesc) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range descs {
		k := key{event: t.event, dst: t.dst}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], t.src)
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per call, initialized with the
// slot's current state. This is necessary because looplab/fsm is stateful
// (it tracks the current state internally).
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// ApplySlot checks if the operational event is valid from the current
// status and returns the destination status.
func (v *Validator) ApplySlot(ctx context.Context, current domain.SlotStatus, event domain.SlotEvent) (domain.SlotStatus, error) {
	next, err := apply(ctx, slotEvents, string(current), string(event))
	if err != nil {
		if isTransitionRefusal(err) {
			return "", &domain.SlotTransitionError{Event: event, Current: current}
		}
		return "", err
	}
	return domain.SlotStatus(next), nil
}

// ApplyDraft checks if the draft event is valid from the current draft
// status and returns the destination status.
func (v *Validator) ApplyDraft(ctx context.Context, current domain.DraftStatus, event domain.DraftEvent) (domain.DraftStatus, error) {
	next, err := apply(ctx, draftEvents, string(current), string(event))
	if err != nil {
		if isTransitionRefusal(err) {
			return "", &domain.DraftTransitionError{Event: event, Current: current}
		}
		return "", err
	}
	return domain.DraftStatus(next), nil
}

func apply(ctx context.Context, events []loopfsm.EventDesc, current, event string) (string, error) {
	machine := loopfsm.NewFSM(current, events, nil)
	if err := machine.Event(ctx, event); err != nil {
		// Declared self-transitions (e.g. saving over an existing draft,
		// re-enabling maintenance) surface as NoTransitionError while the
		// machine stays in place. That is a valid outcome here.
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return machine.Current(), nil
		}
		return "", err
	}
	return machine.Current(), nil
}

// isTransitionRefusal distinguishes "not allowed from this state" from
// internal fsm failures.
func isTransitionRefusal(err error) bool {
	var invalidEvent loopfsm.InvalidEventError
	return errors.As(err, &invalidEvent)
}
