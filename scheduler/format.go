package scheduler

import "strconv"

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
