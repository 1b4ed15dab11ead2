// Package onboarding validates credential-exchange state transitions.
package onboarding

import (
	"context"
	"errors"
	"fmt"

	loopfsm "github.com/looplab/fsm"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

// events converts domain.OnboardingTransitions into looplab/fsm EventDesc
// format, grouping transitions that share an event and destination.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range domain.OnboardingTransitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
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

// Validator checks onboarding transitions against the one-directional
// credential lifecycle. looplab/fsm tracks current state internally, so a
// short-lived machine is built per Apply call.
type Validator struct{}

// New creates the fsm-backed validator.
func New() *Validator {
	return &Validator{}
}

// Apply checks whether event is valid from current and returns the
// destination state. Invalid transitions produce ErrInvalidTransition.
func (v *Validator) Apply(ctx context.Context, current domain.OnboardingState, event domain.OnboardingEvent) (domain.OnboardingState, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, event, current)
		}
		return "", err
	}

	return domain.OnboardingState(machine.Current()), nil
}
