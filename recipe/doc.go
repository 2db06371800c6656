// Package recipe stores pipelines as YAML step lists.
//
// A recipe names its steps by operation and arguments and may include
// other recipes, whose steps run first:
//
//	name: ni-kedge
//	includes: [load-ni]
//	steps:
//	  - op: to_mu
//	    args: [energy, It, I0]
//	    kwargs: {is_transmission: true}
//	  - op: merge
package recipe
