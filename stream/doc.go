// Package stream provides lazy, restartable, pull-based sequences.
//
// A Stream does no work until values are pulled via Collect or ForEach.
// Every pull starts a fresh Iterator, so the same Stream can be consumed
// any number of times and yields the same values each time if its source
// is deterministic.
//
//	entries := stream.Generate(3, func(i int) (string, error) {
//	    return fmt.Sprintf("step %d", i), nil
//	})
//	lines, _ := stream.Collect(ctx, stream.Filter(entries, keep))
//
// Operators:
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side effect without altering the value
//   - Take: stop after n values
//   - Reduce: accumulate all values into one result
package stream
