package llm

import (
	"fmt"

	"github.com/petal-labs/iris/providers"
	// Auto-register common providers.
	_ "github.com/petal-labs/iris/providers/anthropic"
	_ "github.com/petal-labs/iris/providers/ollama"
	_ "github.com/petal-labs/iris/providers/openai"
)

// NewClientFor creates a Client for the named provider. It delegates to the
// iris provider registry to instantiate the underlying provider.
func NewClientFor(name, apiKey string) (Client, error) {
	provider, err := providers.Create(name, apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating provider %q: %w", name, err)
	}
	return NewIrisClient(provider), nil
}
