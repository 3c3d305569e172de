package report

import (
	"sort"
	"strings"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/pipeline"
)

type StatusTotals struct {
	Count       int   `json:"count"`
	VolumeCents int64 `json:"volumeCents"`
}

type Summary struct {
	ByStatus        map[pipeline.Status]StatusTotals `json:"byStatus"`
	CommissionCents int64                            `json:"commissionCents"`
	TotalDeals      int                              `json:"totalDeals"`
}

// Summarize totals deals per status. Commission only counts once a deal has
// closed.
func Summarize(deals []pipeline.Deal) Summary {
	s := Summary{ByStatus: map[pipeline.Status]StatusTotals{
		pipeline.StatusActive:  {},
		pipeline.StatusPending: {},
		pipeline.StatusClosed:  {},
	}}
	for _, d := range deals {
		totals := s.ByStatus[d.Status]
		totals.Count++
		totals.VolumeCents += d.PriceCents
		s.ByStatus[d.Status] = totals
		s.TotalDeals++
		if d.Status == pipeline.StatusClosed {
			s.CommissionCents += d.CommissionCents
		}
	}
	return s
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

const UnknownSource = "unknown"

// LeadSources counts leads per source, largest first, ties by name.
// Sources compare case-insensitively.
func LeadSources(sources []string) []SourceCount {
	counts := make(map[string]int)
	for _, src := range sources {
		src = strings.ToLower(strings.TrimSpace(src))
		if src == "" {
			src = UnknownSource
		}
		counts[src]++
	}

	result := make([]SourceCount, 0, len(counts))
	for src, n := range counts {
		result = append(result, SourceCount{Source: src, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Source < result[j].Source
	})
	return result
}

type MonthClosings struct {
	Month       time.Month `json:"month"`
	Count       int        `json:"count"`
	VolumeCents int64      `json:"volumeCents"`
}

// ClosingsByMonth returns twelve buckets for year, January first, counting
// closed deals by their civil close date.
func ClosingsByMonth(deals []pipeline.Deal, year int) []MonthClosings {
	buckets := make([]MonthClosings, 12)
	for i := range buckets {
		buckets[i].Month = time.Month(i + 1)
	}
	for _, d := range deals {
		if d.Status != pipeline.StatusClosed || d.ClosedAt.IsZero() {
			continue
		}
		closed := d.ClosedAt.In(calendar.Location())
		if closed.Year() != year {
			continue
		}
		b := &buckets[closed.Month()-1]
		b.Count++
		b.VolumeCents += d.PriceCents
	}
	return buckets
}
