package gamification

// LevelEngine derives a level from total XP: floor(xp/XPPerLevel)+1.
type LevelEngine struct {
	XPPerLevel int64
}

type UserProgress struct {
	XP    int64
	Level int
}

type LevelResult struct {
	PreviousXP    int64
	NewXP         int64
	PreviousLevel int
	NewLevel      int
	LeveledUp     bool
}

func (e LevelEngine) divisor() int64 {
	if e.XPPerLevel <= 0 {
		return DefaultQuizXPPerLevel
	}
	return e.XPPerLevel
}

func (e LevelEngine) Level(xp int64) int {
	if xp <= 0 {
		return 1
	}
	return int(xp/e.divisor()) + 1
}

// ApplyXP adds delta to the user's XP. XP never drops below zero and the
// stored level acts as a high-water mark, so events that level with different
// divisors cannot demote a learner.
func (e LevelEngine) ApplyXP(current UserProgress, delta int64) LevelResult {
	prevLevel := current.Level
	if prevLevel < 1 {
		prevLevel = 1
	}
	newXP := current.XP + delta
	if newXP < 0 {
		newXP = 0
	}
	newLevel := e.Level(newXP)
	if newLevel < prevLevel {
		newLevel = prevLevel
	}
	return LevelResult{
		PreviousXP:    current.XP,
		NewXP:         newXP,
		PreviousLevel: prevLevel,
		NewLevel:      newLevel,
		LeveledUp:     newLevel > prevLevel,
	}
}

// Progress reports XP earned within the current level and XP still needed for the next.
func (e LevelEngine) Progress(xp int64) (into int64, toNext int64) {
	if xp < 0 {
		xp = 0
	}
	d := e.divisor()
	into = xp % d
	return into, d - into
}
