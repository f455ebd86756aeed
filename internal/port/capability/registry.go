package capability

import (
	"fmt"
	"sync"
)

// Set bundles the five capabilities one backend provides.
type Set struct {
	MLScorer   Scorer
	RuleScorer Scorer
	Decider    DecisionMaker
	Explainer  Explainer
	Dialogue   Dialogue
}

// Factory is a constructor that builds a capability Set from backend-specific
// configuration.
type Factory func(config map[string]string) (*Set, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a capability backend factory available by name.
// It is typically called from the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("capability: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates a capability Set by backend name.
func New(name string, config map[string]string) (*Set, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("capability: unknown backend %q", name)
	}
	return factory(config)
}

// Available returns the names of all registered backends.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
