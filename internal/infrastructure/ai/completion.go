package ai

import (
	"encoding/json"
	"fmt"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// completion is the provider-neutral view of a single choice.
type completion struct {
	content    string
	structured bool
}

// ParseStructured decodes the schema-constrained content into target.
func (c completion) ParseStructured(target interface{}) error {
	if !c.structured {
		return domain.ErrStructuredOutputUnsupported
	}
	if err := json.Unmarshal([]byte(c.content), target); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return nil
}

func (c completion) Raw() string {
	return c.content
}

var _ ports.Completion = completion{}
