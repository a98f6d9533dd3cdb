package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "single string", input: `"18c2"`, want: []string{"18c2"}},
		{name: "array", input: `["a","b","c"]`, want: []string{"a", "b", "c"}},
		{name: "missing", input: ``, wantErr: "ids is required"},
		{name: "null", input: `null`, wantErr: "ids is required"},
		{name: "empty string", input: `""`, wantErr: "ids cannot be empty"},
		{name: "empty array", input: `[]`, wantErr: "ids cannot be empty"},
		{name: "empty element", input: `["a",""]`, wantErr: "ids[1] cannot be empty"},
		{name: "number", input: `42`, wantErr: "must be a string or array of strings"},
		{name: "mixed array", input: `["a",1]`, wantErr: "must be a string or array of strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(json.RawMessage(tt.input), "ids")
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_TooMany(t *testing.T) {
	ids := make([]string, MaxItems+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	raw, _ := json.Marshal(ids)

	if _, err := Parse(raw, "ids"); err == nil {
		t.Error("expected error for oversized batch")
	}
}

func TestProcess(t *testing.T) {
	ids := []string{"id1", "id2", "id3", "id4", "id5"}

	var inFlight, maxInFlight atomic.Int32
	fn := func(_ context.Context, id string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		if id == "id2" {
			return "", errors.New("failed to process id2")
		}
		return "processed " + id, nil
	}

	results := Process(context.Background(), ids, 2, fn)

	if len(results) != len(ids) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(ids))
	}
	for i, r := range results {
		if r.ID != ids[i] {
			t.Errorf("results[%d].ID = %s, want %s", i, r.ID, ids[i])
		}
	}
	if results[0].Status != StatusSuccess || results[0].Result != "processed id1" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].Status != StatusError || results[1].Error != "failed to process id2" {
		t.Errorf("results[1] = %+v", results[1])
	}
	if maxInFlight.Load() > 2 {
		t.Errorf("max in flight = %d, want <= 2", maxInFlight.Load())
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Process(ctx, []string{"a", "b"}, 1, func(ctx context.Context, id string) (string, error) {
		return "", ctx.Err()
	})

	for _, r := range results {
		if r.Status != StatusError {
			t.Errorf("%s: expected error status after cancellation, got %s", r.ID, r.Status)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		NewSuccessResult("a", "trashed"),
		NewErrorResult("b", errors.New("not found")),
		NewSuccessResult("c", "trashed"),
	})

	if s.Total != 3 || s.Successful != 2 || s.Failed != 1 {
		t.Errorf("Summarize = %+v", s)
	}

	data, err := json.Marshal(Summarize(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"results":[]`) {
		t.Errorf("empty summary should marshal results as [], got %s", data)
	}
}

func TestResultConstructors(t *testing.T) {
	ok := NewSuccessResult("test-id", "done")
	if ok.ID != "test-id" || ok.Status != StatusSuccess || ok.Result != "done" || ok.Error != "" {
		t.Errorf("NewSuccessResult = %+v", ok)
	}

	failed := NewErrorResult("test-id", errors.New("boom"))
	if failed.ID != "test-id" || failed.Status != StatusError || failed.Error != "boom" || failed.Result != "" {
		t.Errorf("NewErrorResult = %+v", failed)
	}
}
