package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/steerrt/agentrt/internal/apperror"
)

// schemaCache compiles each tool's Parameters() schema once; tool instances
// are long-lived singletons in the registry, so recompiling per call would
// be pure waste on the hot path.
var (
	schemaCacheMu sync.Mutex
	schemaCache   = map[string]*jsonschema.Schema{}
)

// ValidateParams compiles (once, cached by toolID) and validates input
// against the tool's declared JSON Schema, returning an apperror with Kind
// tool.invalid_params on any violation.
func ValidateParams(toolID string, schemaJSON json.RawMessage, input json.RawMessage) error {
	compiled, err := compiledSchema(toolID, schemaJSON)
	if err != nil {
		return apperror.ToolInvalidParams(toolID, fmt.Sprintf("bad schema: %v", err))
	}

	var doc any
	if err := json.Unmarshal(input, &doc); err != nil {
		return apperror.ToolInvalidParams(toolID, fmt.Sprintf("invalid JSON: %v", err))
	}
	if err := compiled.Validate(doc); err != nil {
		return apperror.ToolInvalidParams(toolID, err.Error())
	}
	return nil
}

func compiledSchema(toolID string, schemaJSON json.RawMessage) (*jsonschema.Schema, error) {
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()

	if s, ok := schemaCache[toolID]; ok {
		return s, nil
	}

	compiler := jsonschema.NewCompiler()
	url := "mem://" + toolID + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, err
	}
	schemaCache[toolID] = compiled
	return compiled, nil
}
