package utils

// Average returns the arithmetic mean of values, 0 for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// Max returns the largest of the given values.
func Max(values ...float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Abs returns the absolute value of v.
func Abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
