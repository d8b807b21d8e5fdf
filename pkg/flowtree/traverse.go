// Package flowtree walks and rebuilds the linked step tree of a flow version.
package flowtree

import (
	"errors"
	"fmt"

	"github.com/dukex/flowmigrate/pkg/models"
)

// ErrUnknownStepType is returned when a traversal meets a step whose type has
// no registered linkage shape.
var ErrUnknownStepType = errors.New("unknown step type")

// StepTransformer maps one step to its replacement. The step it receives is
// already a private copy and may be modified and returned.
type StepTransformer func(step *models.Step) (*models.Step, error)

// MapSteps adapts an infallible step function to a StepTransformer.
func MapSteps(fn func(step *models.Step) *models.Step) StepTransformer {
	return func(step *models.Step) (*models.Step, error) {
		return fn(step), nil
	}
}

func shapeOf(step *models.Step) (models.StepShape, error) {
	shape, ok := step.Type.Shape()
	if !ok {
		return 0, fmt.Errorf("step %q: %w: %q", step.Name, ErrUnknownStepType, step.Type)
	}

	return shape, nil
}

// CollectAllSteps enumerates every step reachable from root in depth-first
// pre-order: the node, its nextAction chain, its router children in slot
// order, then its loop body. Nil pointers are skipped.
func CollectAllSteps(root *models.Step) ([]*models.Step, error) {
	steps := make([]*models.Step, 0)

	err := collect(root, &steps)
	if err != nil {
		return nil, err
	}

	return steps, nil
}

func collect(step *models.Step, steps *[]*models.Step) error {
	if step == nil {
		return nil
	}

	shape, err := shapeOf(step)
	if err != nil {
		return err
	}

	*steps = append(*steps, step)

	if err := collect(step.NextAction, steps); err != nil {
		return err
	}

	switch shape {
	case models.ShapeRouter:
		for _, child := range step.Children {
			if err := collect(child, steps); err != nil {
				return err
			}
		}
	case models.ShapeLoop:
		return collect(step.FirstLoopAction, steps)
	case models.ShapeBranch:
		if err := collect(step.OnSuccessAction, steps); err != nil {
			return err
		}

		return collect(step.OnFailureAction, steps)
	case models.ShapeLeaf:
	}

	return nil
}

// CollectVersionSteps enumerates every step of a flow version starting at its trigger.
func CollectVersionSteps(version *models.FlowVersion) ([]*models.Step, error) {
	return CollectAllSteps(version.Trigger)
}

// TransferFlow deep-copies version and rebuilds its tree through transform.
// Each node is transformed before its descendants, and recursion follows the
// pointers of the transformed node, so a transform may change a step's type
// and nested layout. The input version is never modified.
func TransferFlow(version *models.FlowVersion, transform StepTransformer) (*models.FlowVersion, error) {
	clone := version.Clone()

	trigger, err := transferStep(clone.Trigger, transform)
	if err != nil {
		return nil, err
	}

	clone.Trigger = trigger

	return clone, nil
}

func transferStep(step *models.Step, transform StepTransformer) (*models.Step, error) {
	if step == nil {
		return nil, nil
	}

	updated, err := transform(step)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", step.Name, err)
	}

	if updated == nil {
		return nil, nil
	}

	shape, err := shapeOf(updated)
	if err != nil {
		return nil, err
	}

	updated.NextAction, err = transferStep(updated.NextAction, transform)
	if err != nil {
		return nil, err
	}

	switch shape {
	case models.ShapeRouter:
		for i, child := range updated.Children {
			updated.Children[i], err = transferStep(child, transform)
			if err != nil {
				return nil, err
			}
		}
	case models.ShapeLoop:
		updated.FirstLoopAction, err = transferStep(updated.FirstLoopAction, transform)
		if err != nil {
			return nil, err
		}
	case models.ShapeBranch:
		updated.OnSuccessAction, err = transferStep(updated.OnSuccessAction, transform)
		if err != nil {
			return nil, err
		}

		updated.OnFailureAction, err = transferStep(updated.OnFailureAction, transform)
		if err != nil {
			return nil, err
		}
	case models.ShapeLeaf:
	}

	return updated, nil
}
