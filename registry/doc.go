// Package registry maps operation names to their contracts.
//
// A Contract declares the argument Schema an operation accepts, the shape
// of the Dataset it expects, what it returns, and the Func that does the
// work. Registration checks the contract once; Validate binds and checks
// call arguments before a step is built, so invalid calls never reach a
// pipeline.
//
//	reg := registry.New()
//	reg.MustRegister(registry.Contract{
//	    Name:   "scale",
//	    Schema: registry.Schema{{Name: "factor", Kind: registry.KindFloat, Required: true}},
//	    Func:   scale,
//	})
//	args, err := reg.Validate("scale", []any{2}, nil)
//	args.Float("factor") // 2.0
//
// The process-wide Default registry is populated at startup and may be
// frozen, after which Register fails.
package registry
