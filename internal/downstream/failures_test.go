package downstream_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-publishing/internal/downstream"
)

func TestMemoryFailureLogDropsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	log := downstream.NewMemoryFailureLog(2)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		_ = log.Record(ctx, downstream.Failure{
			JobID:    fmt.Sprintf("job-%d", i),
			Target:   downstream.TargetLive,
			BasePath: "/vat-rates",
			Reason:   downstream.FailureExhausted,
			FailedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	failures, err := log.List(ctx, downstream.FailureFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(failures) != 2 || failures[0].JobID != "job-2" || failures[1].JobID != "job-1" {
		t.Fatalf("expected the two newest failures, newest first, got %+v", failures)
	}
}

func TestMemoryFailureLogFilters(t *testing.T) {
	ctx := context.Background()
	log := downstream.NewMemoryFailureLog(0)
	_ = log.Record(ctx, downstream.Failure{JobID: "a", Target: downstream.TargetLive, BasePath: "/vat-rates"})
	_ = log.Record(ctx, downstream.Failure{JobID: "b", Target: downstream.TargetDraft, BasePath: "/vat-rates"})
	_ = log.Record(ctx, downstream.Failure{JobID: "c", Target: downstream.TargetLive, BasePath: "/tax-rates"})
	_ = log.Record(ctx, downstream.Failure{JobID: "d", Kind: "publishing.downstream.message", RoutingKey: "guide.major"})

	cases := []struct {
		name   string
		filter downstream.FailureFilter
		want   []string
	}{
		{name: "everything", filter: downstream.FailureFilter{}, want: []string{"d", "c", "b", "a"}},
		{name: "by target", filter: downstream.FailureFilter{Target: downstream.TargetLive}, want: []string{"c", "a"}},
		{name: "by path", filter: downstream.FailureFilter{BasePath: "/vat-rates"}, want: []string{"b", "a"}},
		{name: "limited", filter: downstream.FailureFilter{Limit: 1}, want: []string{"d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			failures, _ := log.List(ctx, tc.filter)
			if len(failures) != len(tc.want) {
				t.Fatalf("expected %v, got %+v", tc.want, failures)
			}
			for i, id := range tc.want {
				if failures[i].JobID != id {
					t.Fatalf("expected %v, got %+v", tc.want, failures)
				}
			}
		})
	}
}
