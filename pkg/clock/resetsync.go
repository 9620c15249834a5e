package clock

// DefaultResetStages is the synchronizer depth used by the CRG.
const DefaultResetStages = 2

// ResetSynchronizer asserts its output as soon as the asynchronous input is
// raised and releases it only after the input has been low for Stages
// consecutive rising edges.
type ResetSynchronizer struct {
	stages []bool
}

// NewResetSynchronizer returns a synchronizer of the given depth, starting in
// reset. Depths below one are raised to one.
func NewResetSynchronizer(stages int) *ResetSynchronizer {
	if stages < 1 {
		stages = 1
	}
	s := &ResetSynchronizer{stages: make([]bool, stages)}
	s.assert()
	return s
}

func (s *ResetSynchronizer) assert() {
	for i := range s.stages {
		s.stages[i] = true
	}
}

// Tick applies one rising edge and returns the synchronized reset for the
// cycle that follows it.
func (s *ResetSynchronizer) Tick(async bool) bool {
	if async {
		s.assert()
		return true
	}
	for i := len(s.stages) - 1; i > 0; i-- {
		s.stages[i] = s.stages[i-1]
	}
	s.stages[0] = false
	return s.Asserted()
}

// Asserted returns the synchronized output.
func (s *ResetSynchronizer) Asserted() bool {
	return s.stages[len(s.stages)-1]
}

// Depth returns the number of stages.
func (s *ResetSynchronizer) Depth() int {
	return len(s.stages)
}
