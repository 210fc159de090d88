package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/jonathan/mentor-match/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	names, err := schemas.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{schemas.NeedsUpdate, schemas.MentorCatalog}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			content, err := schemas.Load(name)
			require.NoError(t, err)

			var schemaObj map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(content), &schemaObj), "schema file should be valid JSON")

			_, hasType := schemaObj["type"]
			_, hasSchema := schemaObj["$schema"]
			assert.True(t, hasType && hasSchema, "schema should declare $schema and type")
		})
	}
}

func TestAllSchemaFiles_Compile(t *testing.T) {
	names, err := schemas.Names()
	require.NoError(t, err)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			content, err := schemas.Load(name)
			require.NoError(t, err)

			_, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
			assert.NoError(t, err)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := schemas.Load("missing.schema.json")
	assert.Error(t, err)
}
