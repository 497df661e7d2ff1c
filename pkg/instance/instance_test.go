package instance

import "testing"

func TestGetIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("WORKER_ID", "worker-7")
	if got := GetID("local"); got != "web.1" {
		t.Fatalf("expected DYNO, got %q", got)
	}
}

func TestGetIDFallsBackToWorkerID(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("WORKER_ID", "worker-7")
	if got := GetID("local"); got != "worker-7" {
		t.Fatalf("expected WORKER_ID, got %q", got)
	}
}
