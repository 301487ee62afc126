package tasks

import "github.com/desertthunder/alx/internal/models"

// IsEligible reports whether entry can be migrated out of expected: it must be a
// planning entry of that type. Entries without media are never eligible.
func IsEligible(entry models.Entry, expected models.MediaType) bool {
	if entry.Media == nil {
		return false
	}
	return entry.Media.Type == expected && entry.Status == models.StatusPlanning
}

// FilterEligible returns the eligible entries in their original order.
func FilterEligible(entries []models.Entry, expected models.MediaType) []models.Entry {
	eligible := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if IsEligible(e, expected) {
			eligible = append(eligible, e)
		}
	}
	return eligible
}
