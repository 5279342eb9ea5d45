package utils

import "time"

// HasMoreAttemptsRecently reports whether at least maxCount of the attempt
// timestamps fall into the past windowSec seconds.
func HasMoreAttemptsRecently(attempts []int64, maxCount int, windowSec int64) bool {
	cutoff := time.Now().Unix() - windowSec
	count := 0
	for _, ts := range attempts {
		if ts >= cutoff {
			count++
		}
	}
	return count >= maxCount
}
