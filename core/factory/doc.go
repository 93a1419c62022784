// Package factory provides the generic registry used to build pluggable
// modules (data providers, metrics sinks) from configuration. A module is
// described by a type name and a raw settings map; factories decode the map
// into their own typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[provider.DataProvider]()
//	reg.Register("sqlite", func(conf map[string]any) (provider.DataProvider, error) {
//	    var c feed.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return feed.OpenConfig(c)
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "feed.db"}})
package factory
