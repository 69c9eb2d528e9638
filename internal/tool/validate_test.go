package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"}
	},
	"required": ["name"]
}`)

func TestValidateParams_Valid(t *testing.T) {
	err := ValidateParams("sample", sampleSchema, json.RawMessage(`{"name": "x"}`))
	assert.NoError(t, err)
}

func TestValidateParams_MissingRequired(t *testing.T) {
	err := ValidateParams("sample", sampleSchema, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestValidateParams_WrongType(t *testing.T) {
	err := ValidateParams("sample", sampleSchema, json.RawMessage(`{"name": 5}`))
	require.Error(t, err)
}

func TestValidateParams_InvalidJSON(t *testing.T) {
	err := ValidateParams("sample", sampleSchema, json.RawMessage(`not json`))
	require.Error(t, err)
}

func TestValidateParams_CachesCompiledSchema(t *testing.T) {
	// Calling twice with the same tool ID should hit the compiled-schema cache
	// and still validate consistently.
	for i := 0; i < 2; i++ {
		err := ValidateParams("cached-tool", sampleSchema, json.RawMessage(`{"name": "x"}`))
		assert.NoError(t, err)
	}
}
