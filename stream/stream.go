package stream

import "context"

// Iterator provides pull-based sequential access to a sequence of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Stream is a lazy, restartable sequence.
type Stream[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// FromSlice creates a stream over a copy of items.
func FromSlice[T any](items []T) *Stream[T] {
	items = append([]T(nil), items...)
	return &Stream[T]{
		create: func(_ context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// Generate creates a stream of n values produced on demand by fn(0)..fn(n-1).
func Generate[T any](n int, fn func(i int) (T, error)) *Stream[T] {
	return &Stream[T]{
		create: func(_ context.Context) Iterator[T] {
			return &genIter[T]{n: n, fn: fn}
		},
	}
}

// FromFunc creates a stream from a factory that produces an Iterator.
// The factory is called once per pull.
func FromFunc[T any](fn func(ctx context.Context) Iterator[T]) *Stream[T] {
	return &Stream[T]{create: fn}
}

// Iter returns a fresh Iterator. The caller must Close it.
func (s *Stream[T]) Iter(ctx context.Context) Iterator[T] {
	return s.create(ctx)
}

// Collect pulls every value into a slice. Context cancellation is checked
// between values.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, s, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// ForEach pulls every value and calls fn for each.
func ForEach[T any](ctx context.Context, s *Stream[T], fn func(context.Context, T) error) error {
	iter := s.create(ctx)
	defer iter.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(ctx, val); err != nil {
			return err
		}
	}
}

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type genIter[T any] struct {
	n     int
	index int
	fn    func(int) (T, error)
}

func (it *genIter[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	if it.index >= it.n {
		return zero, false, nil
	}
	val, err := it.fn(it.index)
	if err != nil {
		return zero, false, err
	}
	it.index++
	return val, true, nil
}

func (it *genIter[T]) Close() error { return nil }
