package models

// CacheStats reports cache performance metrics for one tier.
type CacheStats struct {
	Tier    string `json:"tier"`
	Entries int64  `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

// HitRate returns hits / (hits + misses), or 0 when the tier has seen no lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
