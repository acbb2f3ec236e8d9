package accounts

import "time"

// IsWithinThresholdPeriod checks if the given time is within the threshold,
// measured back from now. The pattern is a time.ParseDuration expression.
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	return isWithinThresholdAt(t, pattern, time.Now())
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

// isWithinThresholdAt anchors the window at an explicit instant so callers
// holding a Clock stay deterministic under test.
func isWithinThresholdAt(t time.Time, pattern string, now time.Time) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	return t.After(now.Add(-duration)), nil
}
