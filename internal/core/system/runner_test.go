package system

import (
	"testing"
	"time"
)

type recordingSystem struct {
	name  string
	phase Phase
	log   *[]string
}

func (s *recordingSystem) Phase() Phase { return s.phase }
func (s *recordingSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
}

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{name: "cleanup", phase: PhaseCleanup, log: &log})
	r.Register(&recordingSystem{name: "camera", phase: PhasePostUpdate, log: &log})
	r.Register(&recordingSystem{name: "car", phase: PhaseUpdate, log: &log})
	r.Register(&recordingSystem{name: "script", phase: PhaseUpdate, log: &log})
	r.Register(&recordingSystem{name: "input", phase: PhaseInput, log: &log})

	r.Tick(time.Second / 60)

	want := []string{"input", "car", "script", "camera", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], log[i])
		}
	}
}

func TestRunnerResortsAfterLateRegister(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{name: "car", phase: PhaseUpdate, log: &log})
	r.Tick(0)
	r.Register(&recordingSystem{name: "input", phase: PhaseInput, log: &log})
	log = log[:0]
	r.Tick(0)

	if len(log) != 2 || log[0] != "input" || log[1] != "car" {
		t.Errorf("expected [input car], got %v", log)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 systems, got %d", r.Len())
	}
}
