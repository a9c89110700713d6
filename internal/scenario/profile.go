package scenario

// householdProfileRaw is the canonical relative consumption shape of a typical
// household: a small morning peak around breakfast and a larger evening peak.
// Values are relative weights, not calibrated units.
var householdProfileRaw = [HoursPerDay]float64{
	0.25, 0.23, 0.22, 0.22, 0.25, // 00-04
	0.35, 0.55, 0.65, 0.60, // 05-08
	0.55, 0.50, 0.48, 0.47, 0.50, 0.55, // 09-14
	0.60, 0.75, 1.10, 1.20, 1.05, // 15-19
	0.70, 0.55, 0.40, 0.30, // 20-23
}

// MakeProfile scales the canonical household shape so the 24 hourly values sum
// to dailyKWh. The caller must pass dailyKWh > 0.
func MakeProfile(dailyKWh float64) [HoursPerDay]float64 {
	rawSum := 0.0
	for _, w := range householdProfileRaw {
		rawSum += w
	}

	scale := dailyKWh / rawSum
	var out [HoursPerDay]float64
	for h, w := range householdProfileRaw {
		out[h] = w * scale
	}
	return out
}
