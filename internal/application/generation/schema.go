package generation

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

// schemaFor reflects the JSON schema sent with structured-output requests.
func schemaFor(v interface{}) (json.RawMessage, error) {
	schema := reflector.Reflect(v)
	schema.Version = ""
	schema.ID = ""
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return data, nil
}
