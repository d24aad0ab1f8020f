package source

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every outbound request an adapter makes, so one slow
// backend cannot hold a refresh indefinitely.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns the bounded client adapters use for outbound calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// AdapterInfo describes a registered source type for UI discovery.
type AdapterInfo struct {
	Type        string `json:"type"`         // "api", "jira", "smax", ...
	DisplayName string `json:"display_name"` // "REST API (cURL)"
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Deps are handed to adapter constructors. The client is shared so the
// timeout policy is set in one place.
type Deps struct {
	Client *http.Client
	Logger *zap.Logger
}

// Registration contains info plus the constructor for an adapter type.
type Registration struct {
	Info AdapterInfo
	New  func(deps Deps) Adapter
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter package's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapter types.
// Used by the API endpoint that tells the UI which source types exist.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetRegistration returns the registration for a source type.
func GetRegistration(sourceType string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[sourceType]
	return reg, ok
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(sourceType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[sourceType]
	return ok
}
