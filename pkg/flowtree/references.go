package flowtree

import (
	"regexp"
	"slices"

	"github.com/dukex/flowmigrate/pkg/models"
)

var (
	connectionsExpr = regexp.MustCompile(`\{\{\s*connections\[\s*('[^']*'(?:\s*,\s*'[^']*')*)\s*\]\s*\}\}`)
	quotedValue     = regexp.MustCompile(`'([^']*)'`)
)

// ConnectionAuthExpression renders the templated auth reference for connection ids.
func ConnectionAuthExpression(ids ...string) string {
	expr := "{{connections["
	for i, id := range ids {
		if i > 0 {
			expr += ","
		}

		expr += "'" + id + "'"
	}

	return expr + "]}}"
}

// ParseConnectionIDs returns the connection ids referenced by an auth expression
// such as {{connections['a','b']}}, in order of appearance.
func ParseConnectionIDs(auth string) []string {
	var ids []string

	for _, match := range connectionsExpr.FindAllStringSubmatch(auth, -1) {
		for _, quoted := range quotedValue.FindAllStringSubmatch(match[1], -1) {
			if quoted[1] != "" {
				ids = append(ids, quoted[1])
			}
		}
	}

	return ids
}

// ExtractConnectionIDs scans input.auth of every step and returns the sorted,
// de-duplicated set of referenced connection ids.
func ExtractConnectionIDs(version *models.FlowVersion) ([]string, error) {
	steps, err := CollectVersionSteps(version)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)

	for _, step := range steps {
		auth, ok := step.Input()[models.InputAuth].(string)
		if !ok {
			continue
		}

		for _, id := range ParseConnectionIDs(auth) {
			if _, dup := seen[id]; dup {
				continue
			}

			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids, nil
}

// ExtractAgentIDs returns input.agentId of every agent piece action in
// traversal order. Missing and empty ids are skipped; duplicates are kept.
func ExtractAgentIDs(version *models.FlowVersion) ([]string, error) {
	steps, err := CollectVersionSteps(version)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)

	for _, step := range steps {
		if !step.IsPieceAction(models.AgentPieceName) {
			continue
		}

		id, _ := step.Input()[models.InputAgentID].(string)
		if id == "" {
			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}
