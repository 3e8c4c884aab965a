package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Outcome pairs one input with the value or error produced for it
type Outcome[I, T any] struct {
	Index int
	Input I
	Value T
	Err   error
}

// GetError returns the error from the outcome
func (o *Outcome[I, T]) GetError() error {
	return o.Err
}

type mapJob[I, T any] struct {
	index int
	input I
	fn    func(ctx context.Context, input I) (T, error)
}

func (j *mapJob[I, T]) Execute(ctx context.Context) Result {
	out := &Outcome[I, T]{Index: j.index, Input: j.input}
	out.Value, out.Err = j.fn(ctx, j.input)
	return out
}

// Map runs fn over inputs on a pool of workers and returns one outcome per
// input in input order, whatever order the jobs finished in. A panicking
// call yields an outcome carrying the panic as its error.
func Map[I, T any](ctx context.Context, workers int, inputs []I, fn func(ctx context.Context, input I) (T, error)) []Outcome[I, T] {
	outcomes := make([]Outcome[I, T], len(inputs))
	if len(inputs) == 0 {
		return outcomes
	}
	for i, in := range inputs {
		outcomes[i] = Outcome[I, T]{Index: i, Input: in, Err: context.Canceled}
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	for i, in := range inputs {
		index, input := i, in
		pool.Submit(&mapJob[I, T]{
			index: index,
			input: input,
			fn: func(ctx context.Context, in I) (value T, err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("input %d panicked: %v", index, r)
					}
				}()
				return fn(ctx, in)
			},
		})
	}

	for _, r := range pool.Wait() {
		if o, ok := r.(*Outcome[I, T]); ok {
			outcomes[o.Index] = *o
		}
	}
	return outcomes
}

// ReadListFile reads sources from a file (one per line), skipping blank
// lines and # comments, deduplicated in first-seen order
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var items []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			items = append(items, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return items, nil
}
