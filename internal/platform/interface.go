package platform

import (
	"errors"

	sdkmath "cosmossdk.io/math"
)

// Adapter defines the interface for a lending-market integration holding pool
// funds on an external yield source. This interface abstracts away the
// specific platform, allowing for different integrations (live, simulation,
// etc.). Reported balances are authoritative ground truth: callers must never
// assume a deposit or withdrawal moved exactly the requested amount unless
// CheckBalance confirms it.
type Adapter interface {
	// Deposit pushes native units of asset onto the platform and returns the
	// quantity that actually arrived there.
	Deposit(asset string, amount sdkmath.Int) (sdkmath.Int, error)

	// Withdraw pulls native units of asset back into the pool. When exact is
	// true the platform must deliver precisely the requested amount.
	Withdraw(asset string, amount sdkmath.Int, exact bool) error

	// CheckBalance reports the platform-held balance for asset.
	CheckBalance(asset string) (sdkmath.Int, error)
}

var ErrUnknownIntegrator = errors.New("platform: unknown integrator")

// Registry resolves integrator keys to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds an adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register wires an adapter under the given integrator key.
func (r *Registry) Register(key string, a Adapter) {
	r.adapters[key] = a
}

// Lookup resolves an integrator key.
func (r *Registry) Lookup(key string) (Adapter, error) {
	a, ok := r.adapters[key]
	if !ok {
		return nil, ErrUnknownIntegrator
	}
	return a, nil
}
