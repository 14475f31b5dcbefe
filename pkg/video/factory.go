package video

import (
	"fmt"
)

// AdapterConstructor builds an adapter bound to a resolved API key
type AdapterConstructor func(apiKey string) (ConferencingAdapter, error)

// AdapterFactory creates conferencing adapters based on provider type
type AdapterFactory interface {
	// CreateAdapter creates a new adapter instance bound to the given key
	CreateAdapter(providerType, apiKey string) (ConferencingAdapter, error)

	// SupportedTypes returns a list of supported provider types
	SupportedTypes() []string
}

// DefaultAdapterFactory is the default implementation of AdapterFactory
type DefaultAdapterFactory struct {
	constructors map[string]AdapterConstructor
}

// NewDefaultAdapterFactory creates a new default adapter factory
func NewDefaultAdapterFactory() *DefaultAdapterFactory {
	return &DefaultAdapterFactory{
		constructors: make(map[string]AdapterConstructor),
	}
}

// RegisterAdapter registers an adapter constructor function
func (f *DefaultAdapterFactory) RegisterAdapter(providerType string, constructor AdapterConstructor) {
	f.constructors[providerType] = constructor
}

// CreateAdapter creates a new adapter instance based on the provider type
func (f *DefaultAdapterFactory) CreateAdapter(providerType, apiKey string) (ConferencingAdapter, error) {
	constructor, exists := f.constructors[providerType]
	if !exists {
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
	return constructor(apiKey)
}

// SupportedTypes returns a list of supported provider types
func (f *DefaultAdapterFactory) SupportedTypes() []string {
	types := make([]string, 0, len(f.constructors))
	for providerType := range f.constructors {
		types = append(types, providerType)
	}
	return types
}
