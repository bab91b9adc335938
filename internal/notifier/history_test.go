package notifier

import (
	"fmt"
	"testing"

	"github.com/openestate/watchtower/internal/models"
)

func record(i int, alertID string) *models.NotificationRecord {
	return &models.NotificationRecord{
		ID:      fmt.Sprintf("n%d", i),
		AlertID: alertID,
		Success: true,
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(record(i, "a1"))
	}

	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}

	recent := h.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("recent = %d records, want 3", len(recent))
	}
	// Newest first; n0 and n1 were evicted
	want := []string{"n4", "n3", "n2"}
	for i, r := range recent {
		if r.ID != want[i] {
			t.Errorf("recent[%d] = %s, want %s", i, r.ID, want[i])
		}
	}
}

func TestHistoryRecentLimit(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 6; i++ {
		h.Append(record(i, "a1"))
	}

	recent := h.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("recent = %d records, want 2", len(recent))
	}
	if recent[0].ID != "n5" || recent[1].ID != "n4" {
		t.Errorf("recent = [%s %s], want [n5 n4]", recent[0].ID, recent[1].ID)
	}
}

func TestHistoryForAlert(t *testing.T) {
	h := NewHistory(10)
	h.Append(record(0, "a1"))
	h.Append(record(1, "a2"))
	h.Append(record(2, "a1"))

	got := h.ForAlert("a1")
	if len(got) != 2 {
		t.Fatalf("for alert = %d records, want 2", len(got))
	}
	if got[0].ID != "n2" || got[1].ID != "n0" {
		t.Errorf("for alert = [%s %s], want [n2 n0]", got[0].ID, got[1].ID)
	}

	if got := h.ForAlert("ghost"); len(got) != 0 {
		t.Errorf("unknown alert = %d records, want 0", len(got))
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistoryCapacity+50; i++ {
		h.Append(record(i, "a1"))
	}
	if h.Len() != DefaultHistoryCapacity {
		t.Errorf("len = %d, want %d", h.Len(), DefaultHistoryCapacity)
	}
}
