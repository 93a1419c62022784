package provider

import "github.com/kilianp07/timetabler/core/factory"

var registry = factory.NewRegistry[DataProvider]()

func init() {
	_ = Register("memory", func(map[string]any) (DataProvider, error) {
		return NewMemory(), nil
	})
}

// Register adds a provider factory identified by name.
func Register(name string, f factory.Factory[DataProvider]) error {
	return registry.Register(name, f)
}

// New creates the DataProvider described by cfg.
func New(cfg factory.ModuleConfig) (DataProvider, error) {
	return registry.Create(cfg)
}
