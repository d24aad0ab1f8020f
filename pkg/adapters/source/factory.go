package source

import (
	"fmt"

	"go.uber.org/zap"
)

// AdapterFactory creates adapters from the registry.
type AdapterFactory interface {
	// NewAdapter creates an adapter for the given source type.
	NewAdapter(sourceType string) (Adapter, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct {
	deps Deps
}

// NewAdapterFactory returns a factory backed by the global registry.
func NewAdapterFactory(deps Deps) AdapterFactory {
	if deps.Client == nil {
		deps.Client = NewHTTPClient()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &registryFactory{deps: deps}
}

func (f *registryFactory) NewAdapter(sourceType string) (Adapter, error) {
	reg, ok := GetRegistration(sourceType)
	if !ok {
		return nil, fmt.Errorf("unsupported data source type: %s (not compiled in)", sourceType)
	}
	return reg.New(f.deps), nil
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements AdapterFactory at compile time.
var _ AdapterFactory = (*registryFactory)(nil)
