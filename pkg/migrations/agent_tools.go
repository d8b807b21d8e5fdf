package migrations

import (
	"fmt"

	"github.com/dukex/flowmigrate/pkg/flowtree"
	"github.com/dukex/flowmigrate/pkg/models"
)

// Agent tool types.
const (
	AgentToolTypePiece = "PIECE"
	AgentToolTypeFlow  = "FLOW"
)

// NewAgentTools normalizes the tools list of agent steps. Piece tools fold
// their connection reference into a templated auth input; flow tools keep
// only their flow reference.
func NewAgentTools() Migration {
	return stepMigration("agent-tools", "7", "8", func(step *models.Step) (*models.Step, error) {
		if !step.IsPieceAction(models.AgentPieceName) {
			return step, nil
		}

		input := inputOf(step.Settings)

		raw, ok := input[models.InputTools]
		if !ok || raw == nil {
			return step, nil
		}

		tools, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: input.tools must be a list, got %T", ErrMalformedStep, raw)
		}

		normalized := make([]any, 0, len(tools))

		for i, item := range tools {
			tool, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: tool %d must be an object, got %T", ErrMalformedStep, i, item)
			}

			normalizedTool, err := normalizeTool(tool)
			if err != nil {
				return nil, fmt.Errorf("tool %d: %w", i, err)
			}

			normalized = append(normalized, normalizedTool)
		}

		input[models.InputTools] = normalized

		return step, nil
	})
}

func normalizeTool(tool map[string]any) (map[string]any, error) {
	toolType, _ := tool["type"].(string)
	toolName, _ := tool["toolName"].(string)

	switch toolType {
	case AgentToolTypePiece:
		metadata, ok := tool["pieceMetadata"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: piece tool %q has no pieceMetadata", ErrMalformedStep, toolName)
		}

		predefinedInput, _ := metadata["predefinedInput"].(map[string]any)
		if predefinedInput == nil {
			predefinedInput = map[string]any{}
		}

		connectionID, _ := metadata["connectionExternalId"].(string)
		if connectionID == "" {
			connectionID, _ = tool["connectionExternalId"].(string)
		}

		if connectionID != "" {
			predefinedInput[models.InputAuth] = flowtree.ConnectionAuthExpression(connectionID)
		}

		return map[string]any{
			"type":     AgentToolTypePiece,
			"toolName": toolName,
			"pieceMetadata": map[string]any{
				"pieceName":       metadata["pieceName"],
				"pieceVersion":    metadata["pieceVersion"],
				"actionName":      metadata["actionName"],
				"predefinedInput": predefinedInput,
			},
		}, nil
	case AgentToolTypeFlow:
		flowID, _ := tool["flowId"].(string)
		if flowID == "" {
			return nil, fmt.Errorf("%w: flow tool %q has no flowId", ErrMalformedStep, toolName)
		}

		return map[string]any{
			"type":     AgentToolTypeFlow,
			"toolName": toolName,
			"flowId":   flowID,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tool type %q", ErrMalformedStep, toolType)
	}
}
