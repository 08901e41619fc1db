package scoring

// KillSwitchResult is the outcome of checking a listing against the
// buy box's kill switches.
type KillSwitchResult struct {
	Triggered bool     `json:"triggered"`
	Reasons   []string `json:"reasons,omitempty"`
}

// EvaluateKillSwitches checks every enabled switch independently and reports
// all that fire.
func EvaluateKillSwitches(ks KillSwitches, flags Flags) KillSwitchResult {
	var res KillSwitchResult

	checks := []struct {
		enabled bool
		present bool
		reason  string
	}{
		{ks.FloodZone, flags.FloodZone, "In flood zone"},
		{ks.HOA, flags.HasHOA, "Has HOA"},
		{ks.Manufactured, flags.Manufactured, "Manufactured home"},
		{ks.FixerUpper, flags.FixerUpper, "Needs significant repairs"},
	}

	for _, c := range checks {
		if c.enabled && c.present {
			res.Triggered = true
			res.Reasons = append(res.Reasons, c.reason)
		}
	}

	return res
}
