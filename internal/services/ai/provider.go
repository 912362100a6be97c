package ai

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Provider is a text completion backend
type Provider interface {
	// Name identifies the provider in logs
	Name() string
	// Complete sends a single prompt and returns the model's text answer
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is one prompt sent to a provider
type CompletionRequest struct {
	// Operation labels the request in logs (e.g. "improve_note")
	Operation string
	System    string
	Prompt    string
	// JSON asks the provider for a JSON object answer where supported
	JSON      bool
	MaxTokens int
}

// ProviderFactory creates a provider from string configuration
// (keys: api_key, model, base_url, debug)
type ProviderFactory func(config map[string]string, logger *zap.Logger) (Provider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// DefaultRegistry returns a registry with every built-in provider registered
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	RegisterOpenAI(r)
	RegisterAnthropic(r)
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// Names lists the registered providers
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string, logger *zap.Logger) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return factory(config, logger)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
