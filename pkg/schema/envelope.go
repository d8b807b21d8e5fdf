// Package schema validates inbound flow version documents before they are decoded.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidEnvelope is returned when a document fails envelope validation.
var ErrInvalidEnvelope = errors.New("invalid flow version document")

// Only the envelope and the step skeleton are checked. Step settings are
// free-form and left to the migrations.
const envelopeSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["trigger"],
	"properties": {
		"id": {"type": ["string", "null"]},
		"flowId": {"type": ["string", "null"]},
		"displayName": {"type": ["string", "null"]},
		"schemaVersion": {"type": ["string", "null"]},
		"connectionIds": {"type": ["array", "null"], "items": {"type": "string"}},
		"agentIds": {"type": ["array", "null"], "items": {"type": "string"}},
		"notes": {"type": ["array", "null"]},
		"valid": {"type": ["boolean", "null"]},
		"state": {"enum": ["DRAFT", "LOCKED", "", null]},
		"updatedBy": {"type": ["string", "null"]},
		"trigger": {"$ref": "#/definitions/step"}
	},
	"definitions": {
		"stepOrNull": {
			"oneOf": [{"type": "null"}, {"$ref": "#/definitions/step"}]
		},
		"step": {
			"type": "object",
			"required": ["name", "type"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"type": {"type": "string", "minLength": 1},
				"settings": {"type": ["object", "null"]},
				"nextAction": {"$ref": "#/definitions/stepOrNull"},
				"firstLoopAction": {"$ref": "#/definitions/stepOrNull"},
				"onSuccessAction": {"$ref": "#/definitions/stepOrNull"},
				"onFailureAction": {"$ref": "#/definitions/stepOrNull"},
				"children": {
					"type": ["array", "null"],
					"items": {"$ref": "#/definitions/stepOrNull"}
				}
			}
		}
	}
}`

var compiledEnvelope = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
})

// ValidateEnvelope checks a raw JSON document against the flow version envelope.
func ValidateEnvelope(document []byte) error {
	envelope, err := compiledEnvelope()
	if err != nil {
		return fmt.Errorf("failed to compile envelope schema: %w", err)
	}

	result, err := envelope.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidEnvelope, strings.Join(errs, "; "))
	}

	return nil
}
