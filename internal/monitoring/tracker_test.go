package monitoring

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"testing"
	"time"
)

func TestCurrentPositionResolution(t *testing.T) {
	checkIn := domain.Coordinates{Lat: 1, Lng: 1}
	openVisit := domain.Visit{ID: "v1", AgentID: "a1", CustomerID: "c1", CheckInAt: testNow.Add(-20 * time.Minute), CheckIn: &checkIn}
	noCoordsVisit := domain.Visit{ID: "v2", AgentID: "a1", CustomerID: "c1", CheckInAt: testNow.Add(-20 * time.Minute)}

	tests := []struct {
		name        string
		samples     []domain.GpsSample
		visits      []domain.Visit
		wantNil     bool
		wantVirtual bool
		wantStale   bool
		wantLat     float64
	}{
		{
			name:    "fresh sample wins over open visit",
			samples: []domain.GpsSample{sample("a1", 5, 5, testNow.Add(-30*time.Second))},
			visits:  []domain.Visit{openVisit},
			wantLat: 5,
		},
		{
			name:        "stale sample falls back to virtual track",
			samples:     []domain.GpsSample{sample("a1", 5, 5, testNow.Add(-10*time.Minute))},
			visits:      []domain.Visit{openVisit},
			wantVirtual: true,
			wantLat:     1,
		},
		{
			name:        "no sample with open visit",
			visits:      []domain.Visit{openVisit},
			wantVirtual: true,
			wantLat:     1,
		},
		{
			name:      "stale sample without usable visit",
			samples:   []domain.GpsSample{sample("a1", 5, 5, testNow.Add(-10*time.Minute))},
			visits:    []domain.Visit{noCoordsVisit},
			wantStale: true,
			wantLat:   5,
		},
		{
			name:    "nothing known",
			wantNil: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			visits := &memVisitRepo{visits: tc.visits}
			tr := NewTracker(newMemGpsRepo(tc.samples...), visits, nil, time.Minute, nil).WithClock(fixedClock)

			got, err := tr.CurrentPosition(context.Background(), "a1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected no position, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a position")
			}
			if got.IsVirtual != tc.wantVirtual || got.Stale != tc.wantStale || got.Coordinates.Lat != tc.wantLat {
				t.Fatalf("got %+v", got)
			}
			if tc.wantVirtual && !got.RecordedAt.Equal(openVisit.CheckInAt) {
				t.Fatalf("virtual track time = %v, want check-in time", got.RecordedAt)
			}
		})
	}
}

func TestCurrentPositionPrefersCache(t *testing.T) {
	gps := newMemGpsRepo(sample("a1", 1, 1, testNow.Add(-10*time.Second)))
	cache := newMemPositionCache()
	cache.latest["a1"] = sample("a1", 2, 2, testNow.Add(-5*time.Second))

	tr := NewTracker(gps, &memVisitRepo{}, cache, time.Minute, nil).WithClock(fixedClock)
	got, err := tr.CurrentPosition(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Coordinates.Lat != 2 {
		t.Fatalf("expected cached sample, got %+v", got)
	}
}

func TestCurrentPositionSurvivesCacheFailure(t *testing.T) {
	gps := newMemGpsRepo(sample("a1", 1, 1, testNow.Add(-10*time.Second)))
	cache := newMemPositionCache()
	cache.err = errors.New("connection refused")

	tr := NewTracker(gps, &memVisitRepo{}, cache, time.Minute, nil).WithClock(fixedClock)
	got, err := tr.CurrentPosition(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Coordinates.Lat != 1 {
		t.Fatalf("expected sample from log, got %+v", got)
	}
}

func TestCurrentPositionReportsStorageErrors(t *testing.T) {
	gps := newMemGpsRepo()
	gps.err = errors.New("db down")

	tr := NewTracker(gps, &memVisitRepo{}, nil, time.Minute, nil).WithClock(fixedClock)
	if _, err := tr.CurrentPosition(context.Background(), "a1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecordSample(t *testing.T) {
	gps := newMemGpsRepo()
	cache := newMemPositionCache()
	tr := NewTracker(gps, &memVisitRepo{}, cache, time.Minute, nil).WithClock(fixedClock)
	ctx := context.Background()

	if err := tr.RecordSample(ctx, sample(" a1 ", 40.4, -3.7, testNow)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if gps.appends != 1 {
		t.Fatalf("appends = %d", gps.appends)
	}
	if _, ok := cache.latest["a1"]; !ok {
		t.Fatal("expected cache refresh under trimmed agent id")
	}
	if tr.metrics.SamplesIngested.Load() != 1 {
		t.Fatalf("samples ingested = %d", tr.metrics.SamplesIngested.Load())
	}

	bad := []domain.GpsSample{
		sample("", 1, 1, testNow),
		sample("a1", 91, 1, testNow),
		sample("a1", 1, -181, testNow),
		sample("a1", 1, 1, time.Time{}),
		{AgentID: "a1", RecordedAt: testNow, IsVirtual: true},
	}
	for _, s := range bad {
		if err := tr.RecordSample(ctx, s); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("sample %+v: expected ErrInvalidInput, got %v", s, err)
		}
	}
	if gps.appends != 1 {
		t.Fatalf("invalid samples must not be stored, appends = %d", gps.appends)
	}
}

func TestRecordSampleIgnoresCacheFailure(t *testing.T) {
	gps := newMemGpsRepo()
	cache := newMemPositionCache()
	cache.err = errors.New("redis down")
	tr := NewTracker(gps, &memVisitRepo{}, cache, time.Minute, nil)

	if err := tr.RecordSample(context.Background(), sample("a1", 1, 1, testNow)); err != nil {
		t.Fatalf("cache failure should not fail ingestion: %v", err)
	}
	if gps.appends != 1 {
		t.Fatalf("appends = %d", gps.appends)
	}
}
