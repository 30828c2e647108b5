package journal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	corejournal "github.com/kilianp07/dayplan/core/journal"
)

func newStore(t *testing.T) corejournal.Store {
	t.Helper()
	st, err := corejournal.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	recs := []corejournal.Record{
		{Timestamp: now, Kind: corejournal.KindGenerated, UserID: "u1", PlanID: "p1"},
		{Timestamp: now.Add(time.Hour), Kind: corejournal.KindBehindSchedule, UserID: "u1", PlanID: "p1"},
		{Timestamp: now, Kind: corejournal.KindGenerated, UserID: "u2", PlanID: "p2"},
	}
	for _, r := range recs {
		if err := st.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return st
}

func TestJournalHandler(t *testing.T) {
	h := NewHandler(newStore(t), "")
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/journal?user_id=u1&kind=behind_schedule", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []corejournal.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Kind != corejournal.KindBehindSchedule {
		t.Fatalf("unexpected output %#v", out)
	}
}

func TestJournalHandlerTimeWindow(t *testing.T) {
	h := NewHandler(newStore(t), "")
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/journal?start=2025-03-04T09:30:00Z", nil)
	h.ServeHTTP(rr, req)
	var out []corejournal.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/journal?end=yesterday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", rr.Code)
	}
}

func TestJournalHandlerAuth(t *testing.T) {
	h := NewHandler(newStore(t), "secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/journal", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/journal", nil)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
