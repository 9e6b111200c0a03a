package vivado

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"
)

// Step is a stage of the Vivado implementation flow.
type Step string

const (
	StepSynthesis Step = "synthesis"
	StepPlacement Step = "placement"
	StepRouting   Step = "routing"
	StepBitstream Step = "bitstream"
)

// ErrUnknownStep is returned for a step name outside the flow.
var ErrUnknownStep = errors.New("vivado: unknown flow step")

// flowEdges lists which step must complete before which.
var flowEdges = [][2]Step{
	{StepSynthesis, StepPlacement},
	{StepPlacement, StepRouting},
	{StepRouting, StepBitstream},
}

var stepRank = map[Step]int{
	StepSynthesis: 0,
	StepPlacement: 1,
	StepRouting:   2,
	StepBitstream: 3,
}

// Steps returns every step of the flow in execution order.
func Steps() []Step {
	steps, _ := StepsTo(StepBitstream)
	return steps
}

// ParseStep converts a step name.
func ParseStep(s string) (Step, error) {
	step := Step(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := stepRank[step]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
	}
	return step, nil
}

func flowGraph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for step := range stepRank {
		if err := g.AddVertex(string(step)); err != nil {
			return nil, fmt.Errorf("vivado: add step %s: %w", step, err)
		}
	}
	for _, e := range flowEdges {
		if err := g.AddEdge(string(e[0]), string(e[1])); err != nil {
			return nil, fmt.Errorf("vivado: add edge %s -> %s: %w", e[0], e[1], err)
		}
	}
	return g, nil
}

// StepsTo returns the steps needed to reach target, in execution order.
func StepsTo(target Step) ([]Step, error) {
	if _, ok := stepRank[target]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, target)
	}
	g, err := flowGraph()
	if err != nil {
		return nil, err
	}
	preds, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("vivado: flow predecessors: %w", err)
	}

	needed := map[string]bool{string(target): true}
	queue := []string{string(target)}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for pred := range preds[cur] {
			if !needed[pred] {
				needed[pred] = true
				queue = append(queue, pred)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return stepRank[Step(a)] < stepRank[Step(b)]
	})
	if err != nil {
		return nil, fmt.Errorf("vivado: order flow: %w", err)
	}
	var steps []Step
	for _, id := range order {
		if needed[id] {
			steps = append(steps, Step(id))
		}
	}
	return steps, nil
}
