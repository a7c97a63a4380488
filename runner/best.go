package runner

// Best folds left over items and returns the element with the highest score.
// A later element replaces the current best only when its score is strictly
// greater, so equal scores keep the earliest element. The second return is
// false for empty input.
func Best[T any](items []T, score func(T) float64) (T, bool) {
	var best T
	if len(items) == 0 {
		return best, false
	}

	best = items[0]
	bestScore := score(items[0])
	for _, item := range items[1:] {
		if s := score(item); s > bestScore {
			best = item
			bestScore = s
		}
	}
	return best, true
}
