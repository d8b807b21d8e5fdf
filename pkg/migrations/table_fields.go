package migrations

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/dukex/flowmigrate/pkg/flowtree"
	"github.com/dukex/flowmigrate/pkg/models"
)

// Tables piece actions whose input.values is keyed by field id.
const (
	TablesActionCreateRecord = "create_record"
	TablesActionUpdateRecord = "update_record"
)

// NewTableFieldExternalIDs rewrites the field keys of tables create/update
// record steps from legacy numeric ids to stable external ids. Ids are
// resolved with a single batched lookup. Keys that cannot be resolved are
// kept as they are.
func NewTableFieldExternalIDs(lookup TableFieldLookup) Migration {
	return &migration{
		name: "tables-field-external-ids",
		from: "6",
		to:   "7",
		fn: func(ctx context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
			return remapTableFields(ctx, lookup, version)
		},
	}
}

func isTablesRecordStep(step *models.Step) bool {
	if !step.IsPieceAction(models.TablesPieceName) {
		return false
	}

	action := step.ActionName()

	return action == TablesActionCreateRecord || action == TablesActionUpdateRecord
}

func recordValues(step *models.Step) (map[string]any, error) {
	raw, ok := inputOf(step.Settings)[models.InputValues]
	if !ok || raw == nil {
		return nil, nil
	}

	values, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: step %q input.values must be an object, got %T", ErrMalformedStep, step.Name, raw)
	}

	return values, nil
}

func legacyFieldIDs(version *models.FlowVersion) ([]int64, error) {
	steps, err := flowtree.CollectVersionSteps(version)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	ids := make([]int64, 0)

	for _, step := range steps {
		if !isTablesRecordStep(step) {
			continue
		}

		values, err := recordValues(step)
		if err != nil {
			return nil, err
		}

		for key := range values {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}

			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	slices.Sort(ids)

	return ids, nil
}

func remapTableFields(ctx context.Context, lookup TableFieldLookup, version *models.FlowVersion) (*models.FlowVersion, error) {
	ids, err := legacyFieldIDs(version)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return version.Clone(), nil
	}

	fields, err := lookup.FindByLegacyIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %d table fields: %w", ErrExternalLookup, len(ids), err)
	}

	resolved := make(map[string]string, len(fields))
	for _, field := range fields {
		if field == nil || field.ExternalID == "" {
			continue
		}

		resolved[strconv.FormatInt(field.ID, 10)] = field.ExternalID
	}

	return flowtree.TransferFlow(version, func(step *models.Step) (*models.Step, error) {
		if !isTablesRecordStep(step) {
			return step, nil
		}

		values, err := recordValues(step)
		if err != nil || values == nil {
			return step, err
		}

		remapped := make(map[string]any, len(values))

		for key, value := range values {
			// a key already named like the external id wins; the legacy key stays.
			if externalID, ok := resolved[key]; ok {
				if _, taken := values[externalID]; !taken {
					remapped[externalID] = value

					continue
				}
			}

			remapped[key] = value
		}

		inputOf(step.Settings)[models.InputValues] = remapped

		return step, nil
	})
}
