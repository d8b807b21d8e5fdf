package migrations

import (
	"context"

	"github.com/dukex/flowmigrate/pkg/flowtree"
	"github.com/dukex/flowmigrate/pkg/models"
)

// NewPinPieceVersion rewrites every step bound to pieceName to pieceVersion.
func NewPinPieceVersion(from, to, pieceName, pieceVersion string) Migration {
	return stepMigration(pinName(pieceName, pieceVersion), from, to, pinPiece(pieceName, pieceVersion))
}

// NewPinAgentPieceWithAgentIDs pins the agent piece and recomputes the
// envelope's agentIds from the rewritten tree.
func NewPinAgentPieceWithAgentIDs(from, to, pieceVersion string) Migration {
	transform := pinPiece(models.AgentPieceName, pieceVersion)

	return &migration{
		name: pinName(models.AgentPieceName, pieceVersion),
		from: from,
		to:   to,
		fn: func(_ context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
			migrated, err := flowtree.TransferFlow(version, transform)
			if err != nil {
				return nil, err
			}

			migrated.AgentIDs, err = flowtree.ExtractAgentIDs(migrated)
			if err != nil {
				return nil, err
			}

			return migrated, nil
		},
	}
}

func pinName(pieceName, pieceVersion string) string {
	return "pin-" + pieceName + "@" + pieceVersion
}

func pinPiece(pieceName, pieceVersion string) flowtree.StepTransformer {
	return flowtree.MapSteps(func(step *models.Step) *models.Step {
		if step.PieceName() != pieceName {
			return step
		}

		step.Settings[models.SettingsPieceVersion] = pieceVersion

		return step
	})
}
