// Package factory builds pluggable components, such as dispatch engines and
// metrics sinks, from a configuration entry made of a type name and a map of
// raw settings. Each registered constructor decodes its settings with Decode
// before returning the component.
//
//	engines := factory.NewRegistry[dispatch.Engine]()
//	_ = engines.Register("self_consumption", func(conf map[string]any) (dispatch.Engine, error) {
//		var o dispatch.Options
//		if err := factory.Decode(conf, &o); err != nil {
//			return nil, err
//		}
//		return dispatch.NewSelfConsumption(o, nil), nil
//	})
//	eng, err := engines.Create(factory.ModuleConfig{Type: "self_consumption"})
package factory
