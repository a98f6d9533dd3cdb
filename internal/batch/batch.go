package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MaxItems is the largest batch accepted by Parse.
const MaxItems = 1000

// Status values of a Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one item in a batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// Parse decodes a JSON value that is either a single id or an array of ids.
// Empty ids are rejected.
func Parse(raw json.RawMessage, name string) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%s is required", name)
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, fmt.Errorf("%s cannot be empty", name)
		}
		return []string{single}, nil
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", name)
	}
	if len(ids) > MaxItems {
		return nil, fmt.Errorf("%s has %d items, maximum is %d", name, len(ids), MaxItems)
	}
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", name, i)
		}
	}
	return ids, nil
}

// Process runs fn for every id with at most limit calls in flight and
// returns one Result per id in input order. A failing item never stops the
// others; cancellation of ctx surfaces as per-item errors.
func Process(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, id string) (string, error)) []Result {
	results := make([]Result, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			res, err := fn(ctx, id)
			if err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			results[i] = NewSuccessResult(id, res)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Summarize counts successes and failures.
func Summarize(results []Result) Summary {
	s := Summary{
		Total:   len(results),
		Results: results,
	}
	if s.Results == nil {
		s.Results = []Result{}
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// NewSuccessResult creates a success result
func NewSuccessResult(id, message string) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
