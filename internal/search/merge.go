package search

import "gamecatalog/internal/domain"

// Merge appends local results in their ranked order, then remote results
// whose identity has not been seen yet, in the order the remote returned them.
func Merge(local, remote []domain.GameResult) []domain.GameResult {
	merged := make([]domain.GameResult, 0, len(local)+len(remote))
	seen := make(map[domain.GameID]struct{}, len(local)+len(remote))

	for _, item := range local {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range remote {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		merged = append(merged, item)
	}
	return merged
}
