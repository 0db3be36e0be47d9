package health

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tlgayhan/pedi-mvp/data"
	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/validation"
)

type fixedSchedule struct {
	next time.Time
}

func (f fixedSchedule) NextReload() time.Time { return f.next }

// stubStore serves a fixed snapshot with a controllable timestamp
type stubStore struct {
	snapshot    *reference.Snapshot
	lastUpdated time.Time
	startTime   time.Time
	updating    bool
}

func (s *stubStore) GetSnapshot() *reference.Snapshot { return s.snapshot }
func (s *stubStore) GetDataQualityReport() *validation.DataQualityReport {
	return &validation.DataQualityReport{}
}
func (s *stubStore) GetLastUpdated() time.Time     { return s.lastUpdated }
func (s *stubStore) IsUpdating() bool              { return s.updating }
func (s *stubStore) GetServerStartTime() time.Time { return s.startTime }
func (s *stubStore) UpdateData(snapshot *reference.Snapshot, report *validation.DataQualityReport) {
	s.snapshot = snapshot
	s.lastUpdated = time.Now()
}
func (s *stubStore) BeginUpdate() bool { return true }
func (s *stubStore) EndUpdate()        {}

func loadedStore(t *testing.T, lastUpdated time.Time) *stubStore {
	t.Helper()
	ds, err := reference.NewLoader("").Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load embedded datasets: %v", err)
	}
	snap, err := reference.NewSnapshot(ds)
	if err != nil {
		t.Fatalf("Failed to build snapshot: %v", err)
	}

	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}
	return &stubStore{
		snapshot:    snap,
		lastUpdated: lastUpdated,
		startTime:   time.Now().Add(-time.Minute),
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		lastUpdated time.Time
		interval    time.Duration
		wantStatus  string
		wantHTTP    int
	}{
		{
			name:       "fresh data without reloads",
			wantStatus: "healthy",
			wantHTTP:   http.StatusOK,
		},
		{
			name:        "fresh data with reloads",
			lastUpdated: time.Now().Add(-30 * time.Minute),
			interval:    time.Hour,
			wantStatus:  "healthy",
			wantHTTP:    http.StatusOK,
		},
		{
			name:        "stale data is degraded but served",
			lastUpdated: time.Now().Add(-3 * time.Hour),
			interval:    time.Hour,
			wantStatus:  "degraded",
			wantHTTP:    http.StatusOK,
		},
		{
			name:        "old data without reloads stays healthy",
			lastUpdated: time.Now().Add(-72 * time.Hour),
			wantStatus:  "healthy",
			wantHTTP:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := loadedStore(t, tt.lastUpdated)
			hc := NewHealthChecker(store, nil, tt.interval, BuildInfo{Version: "1.2.3"})

			status, details, code := hc.HealthCheck()

			if status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, status)
			}
			if code != tt.wantHTTP {
				t.Errorf("Expected HTTP %d, got %d", tt.wantHTTP, code)
			}

			for _, key := range []string{"last_update", "data_age_hours", "drugs", "toxidromes", "red_flags", "source", "is_updating", "quality_issues", "version", "uptime_seconds"} {
				if _, ok := details[key]; !ok {
					t.Errorf("Expected details to contain %q", key)
				}
			}
			if details["source"] != reference.SourceEmbedded {
				t.Errorf("Expected embedded source, got %v", details["source"])
			}
			if details["version"] != "1.2.3" {
				t.Errorf("Expected version 1.2.3, got %v", details["version"])
			}
		})
	}
}

func TestHealthCheckNoSnapshot(t *testing.T) {
	store := data.NewDataContainer()
	hc := NewHealthChecker(store, nil, time.Hour, BuildInfo{Version: "dev", GitSHA: "abc123"})

	status, details, code := hc.HealthCheck()

	if status != "unhealthy" {
		t.Errorf("Expected unhealthy, got %q", status)
	}
	if code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", code)
	}
	if details["git_sha"] != "abc123" {
		t.Errorf("Expected build info in details, got %v", details)
	}
	if _, ok := details["drugs"]; ok {
		t.Error("Expected no dataset counts without a snapshot")
	}
}

func TestHealthCheckUpdating(t *testing.T) {
	store := loadedStore(t, time.Time{})
	store.updating = true

	hc := NewHealthChecker(store, nil, 0, BuildInfo{})
	status, details, _ := hc.HealthCheck()

	if status != "healthy" {
		t.Errorf("An update in progress should not change the status, got %q", status)
	}
	if details["is_updating"] != true {
		t.Errorf("Expected is_updating true, got %v", details["is_updating"])
	}
}

func TestNextReload(t *testing.T) {
	next := time.Now().Add(time.Hour).Truncate(time.Second)

	tests := []struct {
		name     string
		schedule ReloadSchedule
		interval time.Duration
		want     time.Time
	}{
		{"no schedule", nil, time.Hour, time.Time{}},
		{"reloads disabled", fixedSchedule{next: next}, 0, time.Time{}},
		{"scheduled", fixedSchedule{next: next}, time.Hour, next},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker(data.NewDataContainer(), tt.schedule, tt.interval, BuildInfo{})
			if got := hc.NextReload(); !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHealthCheckReportsNextReload(t *testing.T) {
	next := time.Now().Add(time.Hour)
	store := loadedStore(t, time.Time{})
	hc := NewHealthChecker(store, fixedSchedule{next: next}, time.Hour, BuildInfo{})

	_, details, _ := hc.HealthCheck()

	if details["next_reload"] != next.Format(time.RFC3339) {
		t.Errorf("Expected next_reload %s, got %v", next.Format(time.RFC3339), details["next_reload"])
	}
}

func BenchmarkHealthCheck(b *testing.B) {
	ds, err := reference.NewLoader("").Load(context.Background())
	if err != nil {
		b.Fatal(err)
	}
	snap, err := reference.NewSnapshot(ds)
	if err != nil {
		b.Fatal(err)
	}
	store := data.NewDataContainer()
	store.UpdateData(snap, nil)
	hc := NewHealthChecker(store, nil, time.Hour, BuildInfo{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hc.HealthCheck()
	}
}
