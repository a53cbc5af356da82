package analysis

import "context"

// foldUntil threads state through items in order and stops at the first item
// for which fn reports stop. The bool result reports whether it stopped early.
func foldUntil[T, S any](ctx context.Context, items []T, state S, fn func(context.Context, S, T) (S, bool, error)) (S, bool, error) {
	for _, item := range items {
		next, stop, err := fn(ctx, state, item)
		if err != nil {
			return state, false, err
		}
		state = next
		if stop {
			return state, true, nil
		}
	}
	return state, false, nil
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
