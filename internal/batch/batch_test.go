package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/ic3lab/pdrcheck/pkg/pdr"
)

func TestRunPreservesOrderAndAggregatesErrors(t *testing.T) {
	jobs := []Job{
		{Name: "a", Run: func(ctx context.Context) (pdr.Result, *pdr.Trace, error) {
			return pdr.Valid, nil, nil
		}},
		{Name: "b", Run: func(ctx context.Context) (pdr.Result, *pdr.Trace, error) {
			return pdr.Unknown, nil, errors.New("boom")
		}},
		{Name: "c", Run: func(ctx context.Context) (pdr.Result, *pdr.Trace, error) {
			return pdr.Invalid, &pdr.Trace{}, nil
		}},
	}

	pool := NewPool(2)
	results, err := pool.Run(context.Background(), jobs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Name != "a" || results[0].Result != pdr.Valid {
		t.Errorf("unexpected result[0]: %+v", results[0])
	}
	if results[1].Name != "b" || results[1].Err == nil {
		t.Errorf("unexpected result[1]: %+v", results[1])
	}
	if results[2].Name != "c" || results[2].Result != pdr.Invalid {
		t.Errorf("unexpected result[2]: %+v", results[2])
	}
	if err == nil {
		t.Fatal("expected a combined error from the failing job")
	}
}

func TestRunAllSucceed(t *testing.T) {
	jobs := []Job{
		{Name: "a", Run: func(ctx context.Context) (pdr.Result, *pdr.Trace, error) { return pdr.Valid, nil, nil }},
		{Name: "b", Run: func(ctx context.Context) (pdr.Result, *pdr.Trace, error) { return pdr.Valid, nil, nil }},
	}
	pool := NewPool(0)
	_, err := pool.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
