package gamification

// ClampHearts removes lost hearts and clamps to [0, max]. A negative loss
// removes nothing; refills are not a progress event.
func ClampHearts(current, lost, max int) int {
	if max < 0 {
		max = 0
	}
	if lost < 0 {
		lost = 0
	}
	v := current - lost
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
