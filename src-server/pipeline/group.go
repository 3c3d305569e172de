package pipeline

import (
	"sort"
	"time"

	"brokerdesk/src-server/calendar"
)

const UnscheduledKey = "unscheduled"

type MonthGroup struct {
	// "2006-01", or UnscheduledKey
	Key   string `json:"key"`
	Deals []Deal `json:"deals"`
}

// GroupByMonth buckets deals by the civil month of their expected close
// date. Months come out ascending; deals with no date trail in their own
// group. Within a group the input order is kept.
func GroupByMonth(deals []Deal) []MonthGroup {
	byKey := make(map[string][]Deal)
	keys := make([]string, 0)
	var unscheduled []Deal

	for _, deal := range deals {
		if deal.ExpectedClose.IsZero() {
			unscheduled = append(unscheduled, deal)
			continue
		}
		key := deal.ExpectedClose.In(calendar.Location()).Format("2006-01")
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], deal)
	}

	// "2006-01" sorts lexically in date order
	sort.Strings(keys)

	groups := make([]MonthGroup, 0, len(keys)+1)
	for _, key := range keys {
		groups = append(groups, MonthGroup{Key: key, Deals: byKey[key]})
	}
	if len(unscheduled) > 0 {
		groups = append(groups, MonthGroup{Key: UnscheduledKey, Deals: unscheduled})
	}
	return groups
}

// Parse a MonthGroup key back into the first instant of that month.
func MonthStart(key string) (time.Time, error) {
	return time.ParseInLocation("2006-01", key, calendar.Location())
}
