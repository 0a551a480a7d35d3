package conversations

import (
	"sort"
	"strings"
	"time"

	"github.com/siralabs/sira/internal/api"
)

// Bucket labels, in display order.
const (
	BucketToday         = "Today"
	BucketYesterday     = "Yesterday"
	BucketPrevious7Days = "Previous 7 days"
	BucketOlder         = "Older"
)

// BucketOrder is the fixed display order of recency buckets.
var BucketOrder = []string{BucketToday, BucketYesterday, BucketPrevious7Days, BucketOlder}

// Group is one recency bucket with its conversations, most recent first.
type Group struct {
	Label         string
	Conversations []api.Conversation
}

// GroupByRecency partitions conversations into calendar-day buckets
// relative to now, in the caller's location. Every conversation lands in
// exactly one bucket; empty buckets are omitted.
func GroupByRecency(items []api.Conversation, now time.Time) []Group {
	sorted := make([]api.Conversation, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ActivityTime().After(sorted[j].ActivityTime())
	})

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfYesterday := startOfToday.AddDate(0, 0, -1)
	startOfWeek := startOfToday.AddDate(0, 0, -7)

	byLabel := map[string][]api.Conversation{}
	for _, c := range sorted {
		at := c.ActivityTime()
		var label string
		switch {
		case !at.Before(startOfToday):
			label = BucketToday
		case !at.Before(startOfYesterday):
			label = BucketYesterday
		case !at.Before(startOfWeek):
			label = BucketPrevious7Days
		default:
			label = BucketOlder
		}
		byLabel[label] = append(byLabel[label], c)
	}

	var groups []Group
	for _, label := range BucketOrder {
		if list, ok := byLabel[label]; ok {
			groups = append(groups, Group{Label: label, Conversations: list})
		}
	}
	return groups
}

// Filter returns the conversations whose title contains the query,
// case-insensitively. An empty query returns everything.
func Filter(items []api.Conversation, query string) []api.Conversation {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	var out []api.Conversation
	for _, c := range items {
		if strings.Contains(strings.ToLower(c.Title), query) {
			out = append(out, c)
		}
	}
	return out
}
