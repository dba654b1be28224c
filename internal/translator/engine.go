package translator

import (
	"context"
	"errors"
	"fmt"
)

// Step is one unit of a flow. State is entered before Execute runs.
type Step struct {
	Name    string
	State   State
	Execute func(ctx context.Context, s *Session) error
}

func NewStep(name string, state State, execute func(ctx context.Context, s *Session) error) *Step {
	return &Step{
		Name:    name,
		State:   state,
		Execute: execute,
	}
}

type Flow struct {
	name  string
	steps []*Step
}

func NewFlow(name string, steps ...*Step) *Flow {
	return &Flow{name: name, steps: steps}
}

func (f *Flow) Name() string {
	return f.name
}

type Engine struct {
	flows map[string]*Flow
}

func NewEngine(flows ...*Flow) *Engine {
	m := make(map[string]*Flow, len(flows))
	for _, f := range flows {
		m[f.Name()] = f
	}
	return &Engine{flows: m}
}

// Run executes the steps of a flow in order. A step returning a *BlockedError stops the
// flow in the Blocked state without an error; any other error aborts it.
func (e *Engine) Run(ctx context.Context, flowName string, s *Session) error {
	f, exists := e.flows[flowName]
	if !exists {
		return fmt.Errorf("unsupported flow: %v", flowName)
	}

	for _, step := range f.steps {
		s.transition(step.State)

		err := step.Execute(ctx, s)
		if err == nil {
			continue
		}

		var blocked *BlockedError
		if errors.As(err, &blocked) {
			s.block(blocked)
			return nil
		}
		return fmt.Errorf("%s step failed: %w", step.Name, err)
	}
	return nil
}
