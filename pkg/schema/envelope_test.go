package schema

import (
	"encoding/json"
	"testing"

	"github.com/dukex/flowmigrate/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvelope_AcceptsBuiltDocuments(t *testing.T) {
	branch := testutil.CreateTestStep("check", testutil.WithBranch(testutil.CreateTestStep("yes"), nil))
	router := testutil.CreateTestStep("route", testutil.WithRouter(nil, testutil.CreateTestStep("b")))
	loop := testutil.CreateTestStep("loop", testutil.WithLoop(testutil.CreateTestStep("body")))
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(testutil.Chain(branch, router, loop)), "")

	document, err := json.Marshal(version)
	require.NoError(t, err)

	assert.NoError(t, ValidateEnvelope(document))
}

func TestValidateEnvelope_AcceptsNullScalars(t *testing.T) {
	document := `{
		"id": null,
		"flowId": null,
		"displayName": null,
		"schemaVersion": null,
		"state": null,
		"valid": null,
		"trigger": {"name": "trigger", "type": "EMPTY", "settings": {}}
	}`

	require.NoError(t, ValidateEnvelope([]byte(document)))
}

func TestValidateEnvelope_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{name: "not json", document: `{`},
		{name: "not an object", document: `[]`},
		{name: "missing trigger", document: `{"schemaVersion": "1"}`},
		{name: "numeric schema version", document: `{"schemaVersion": 3, "trigger": {"name": "trigger", "type": "EMPTY"}}`},
		{name: "step without type", document: `{"trigger": {"name": "trigger"}}`},
		{name: "nested step without name", document: `{"trigger": {"name": "trigger", "type": "EMPTY", "nextAction": {"type": "CODE"}}}`},
		{name: "unknown state", document: `{"state": "ARCHIVED", "trigger": {"name": "trigger", "type": "EMPTY"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvelope([]byte(tt.document))
			require.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}
}
