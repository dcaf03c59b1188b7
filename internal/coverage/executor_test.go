package coverage

import "testing"

func TestObserverExecutorResetsBeforeEveryRun(t *testing.T) {
	m := NewCoverageMap(1024)
	obs := NewMapObserver(m)

	calls := 0
	exec := ObserverExecutor{
		Observer: obs,
		Target: func(input []byte) {
			calls++
			for i := 0; i+1 < len(input); i++ {
				m.RecordEdge(uint32(input[i]), uint32(input[i+1]))
			}
		},
	}

	fp1 := exec.Run([]byte("aaaa"))
	fp2 := exec.Run([]byte("aaaa"))
	if !fp1.Equal(fp2) {
		t.Fatalf("identical inputs produced different fingerprints after reset: observer not reset before execution")
	}
	if calls != 2 {
		t.Fatalf("target called %d times, want 2", calls)
	}
}

func TestFingerprintEqualityDetectsDifference(t *testing.T) {
	m := NewCoverageMap(1024)
	obs := NewMapObserver(m)
	exec := ObserverExecutor{
		Observer: obs,
		Target: func(input []byte) {
			for i := 0; i+1 < len(input); i++ {
				m.RecordEdge(uint32(input[i]), uint32(input[i+1]))
			}
		},
	}

	fp1 := exec.Run([]byte("aaaa"))
	fp2 := exec.Run([]byte("MAGIC"))
	if fp1.Equal(fp2) {
		t.Fatalf("expected different coverage for different inputs")
	}
}
