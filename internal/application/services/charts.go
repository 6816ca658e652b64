package services

import (
	"time"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// VolumePoint is the transferred value of one UTC day
type VolumePoint struct {
	Day   time.Time `json:"day"`
	Value float64   `json:"value"`
	Count int       `json:"count"`
}

// BuildDailyVolume sums transaction values per UTC day, from the first to
// the last day with activity. Days without transactions are present with
// zero value. Transactions without a timestamp are left out.
func BuildDailyVolume(txs []entities.Transaction) []VolumePoint {
	byDay := make(map[time.Time]*VolumePoint)
	var first, last time.Time

	for _, tx := range txs {
		if tx.Timestamp == nil {
			continue
		}
		day := tx.Timestamp.UTC().Truncate(24 * time.Hour)
		p, ok := byDay[day]
		if !ok {
			p = &VolumePoint{Day: day}
			byDay[day] = p
		}
		p.Value += tx.Value
		p.Count++

		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	if len(byDay) == 0 {
		return []VolumePoint{}
	}

	points := make([]VolumePoint, 0, int(last.Sub(first)/(24*time.Hour))+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if p, ok := byDay[day]; ok {
			points = append(points, *p)
		} else {
			points = append(points, VolumePoint{Day: day})
		}
	}
	return points
}

// BuildAllocation sums portfolio balances per native asset symbol.
// Failed entries are left out.
func BuildAllocation(entries []entities.PortfolioEntry) map[string]float64 {
	allocation := make(map[string]float64)
	for _, e := range entries {
		if e.Failed() {
			continue
		}
		symbol := e.Network
		if network, ok := entities.LookupNetwork(e.Network); ok {
			symbol = network.Symbol
		}
		allocation[symbol] += e.Balance
	}
	return allocation
}
