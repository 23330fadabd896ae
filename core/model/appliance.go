package model

// ApplianceCycle is one contiguous run of non-idle samples in an appliance
// trace, covering indices [Start, End).
type ApplianceCycle struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of samples in the cycle.
func (c ApplianceCycle) Len() int { return c.End - c.Start }

// ShiftDecision records what the scheduler did with one cycle.
type ShiftDecision struct {
	Cycle ApplianceCycle `json:"cycle"`
	// Shifted is true when the cycle started outside the admissible window and
	// a relocation was attempted.
	Shifted bool `json:"shifted"`
	// ChosenStart is the index where the cycle was finally placed.
	ChosenStart int `json:"chosen_start"`
	// ShiftMagnitude is |ChosenStart - Cycle.Start| in samples.
	ShiftMagnitude int  `json:"shift_magnitude"`
	UnableToShift  bool `json:"unable_to_shift"`
}

// ShiftStats summarises a rescheduled appliance trace.
type ShiftStats struct {
	CycleCount         int     `json:"cycle_count"`
	NetShiftedCount    int     `json:"net_shifted_count"`
	MaxShiftHours      float64 `json:"max_shift_hours"`
	AvgShiftHours      float64 `json:"avg_shift_hours"`
	UnableToShiftCount int     `json:"unable_to_shift_count"`
}
