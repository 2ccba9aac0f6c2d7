package sync

// MentionScore combines extraction confidence with bonuses for how well
// the mention is anchored to a real place. Capped at 1.0.
//
//	score = confidence + 0.10 if place + 0.10 if address + 0.05 if hours
func MentionScore(confidence float64, hasPlace, hasAddress, hasHours bool) float64 {
	score := confidence
	if hasPlace {
		score += 0.10
	}
	if hasAddress {
		score += 0.10
	}
	if hasHours {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
