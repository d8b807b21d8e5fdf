package migrations

import "github.com/dukex/flowmigrate/pkg/models"

// LatestSchemaVersion is the version every supported document migrates to.
// New flows are created at this version.
const LatestSchemaVersion = "8"

// DefaultMigrations returns the production migration chain in version order.
func DefaultMigrations(lookup TableFieldLookup) []Migration {
	return []Migration{
		NewBranchToRouter(),
		NewAddConnectionIDs(),
		NewPinPieceVersion("2", "3", models.AgentPieceName, "0.2.0"),
		NewPinPieceVersion("3", "4", models.AgentPieceName, "0.2.4"),
		NewPinAgentPieceWithAgentIDs("4", "5", "0.3.0"),
		NewPropertySettings(),
		NewTableFieldExternalIDs(lookup),
		NewAgentTools(),
	}
}

// DefaultPipeline builds a Pipeline over DefaultMigrations.
func DefaultPipeline(lookup TableFieldLookup, opts ...Option) (*Pipeline, error) {
	return NewPipeline(DefaultMigrations(lookup), opts...)
}
