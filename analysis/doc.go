// Package analysis is the chainable front end of the engine.
//
// An Analysis wraps an immutable Pipeline. Every chain call returns a new
// Analysis, so a shared prefix can be branched freely:
//
//	base := analysis.FromSource("data/ni").ToMu("energy", "It", analysis.Kwargs{"reference": "I0", "is_transmission": true})
//	merged := base.Merge().FitEdgeJump()
//	summary, err := merged.Summarize(ctx)
//
// Chain methods record the first error and turn every later call into a
// no-op; check Err, or the error returned by Calculate or Summarize. Apply
// is the strict form that returns the error directly.
package analysis
