package pressure

import "time"

// EpochOffset returns the whole seconds between t and the Epoch.
// Fractional seconds are truncated towards the earlier second.
func EpochOffset(t time.Time) int64 {
	return t.Unix()
}

// ProjectUTC converts elapsed seconds into absolute UTC epoch milliseconds.
// Each value is truncated to an integer second before the offset is added.
func ProjectUTC(elapsed []float32, offset int64) []int64 {
	millis := make([]int64, len(elapsed))
	for i, e := range elapsed {
		millis[i] = (int64(e) + offset) * 1000
	}
	return millis
}
