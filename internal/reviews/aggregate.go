package reviews

// NextAggregate folds one rating into a running (mean, count) pair.
// The repository performs the same arithmetic in SQL.
func NextAggregate(mean float64, count int, rating int) (float64, int) {
	next := count + 1
	return (mean*float64(count) + float64(rating)) / float64(next), next
}

// Aggregate computes (mean, count) for a full set of ratings.
func Aggregate(ratings []int) (float64, int) {
	var (
		mean  float64
		count int
	)
	for _, r := range ratings {
		mean, count = NextAggregate(mean, count, r)
	}
	return mean, count
}
