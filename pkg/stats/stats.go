// Package stats builds the admin dashboard figures from the order listing.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/datx24/storefront/pkg/models"
)

const (
	DefaultRecentLimit = 5
	// MaxRangeDays is the longest window the dashboard aggregates
	MaxRangeDays = 366
	// maxPages bounds CollectAll against a backend that never reports a last page
	maxPages   = 1000
	dateLayout = "2006-01-02"
)

type OrderLister interface {
	ListOrders(ctx context.Context, q models.OrderQuery) (*models.OrderPage, error)
}

type StatusBucket struct {
	Count   int   `json:"count"`
	Revenue int64 `json:"revenue"`
}

type DailyBucket struct {
	Date    string `json:"date"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type Statistics struct {
	StartDate    string                  `json:"start_date"`
	EndDate      string                  `json:"end_date"`
	TotalOrders  int                     `json:"total_orders"`
	TotalRevenue int64                   `json:"total_revenue"`
	AverageOrder int64                   `json:"average_order_value"`
	ByStatus     map[string]StatusBucket `json:"by_status"`
	Daily        []DailyBucket           `json:"daily"`
	RecentOrders []models.Order          `json:"recent_orders"`
}

// Range is an inclusive calendar-day window
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange reads YYYY-MM-DD dates in loc. The window starts at 00:00 of start and
// ends at the last instant of end. Empty dates default to the 30 days ending today.
func ParseRange(startDate, endDate string, loc *time.Location, now time.Time) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)

	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if endDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, endDate, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid end_date %q: %w", endDate, err)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -29)
	if startDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, startDate, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid start_date %q: %w", startDate, err)
		}
		start = parsed
	}

	if start.After(end) {
		return Range{}, fmt.Errorf("start_date %s is after end_date %s", start.Format(dateLayout), end.Format(dateLayout))
	}
	if end.After(start.AddDate(0, 0, MaxRangeDays-1)) {
		return Range{}, fmt.Errorf("date range %s to %s is longer than %d days", start.Format(dateLayout), end.Format(dateLayout), MaxRangeDays)
	}

	return Range{Start: start, End: end.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// CollectAll pages through the order listing from page 1 to the last page
func CollectAll(ctx context.Context, lister OrderLister, q models.OrderQuery) ([]models.Order, error) {
	var orders []models.Order
	for page := 1; page <= maxPages; page++ {
		q.Page = page
		res, err := lister.ListOrders(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list orders page %d: %w", page, err)
		}
		orders = append(orders, res.Data...)
		if res.LastPage <= page || len(res.Data) == 0 {
			break
		}
	}
	return orders, nil
}

// Compute aggregates the orders created inside r. Cancelled orders are counted
// but bring no revenue.
func Compute(orders []models.Order, r Range, recentLimit int) *Statistics {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	loc := r.Start.Location()

	stats := &Statistics{
		StartDate: r.Start.Format(dateLayout),
		EndDate:   r.End.Format(dateLayout),
		ByStatus:  make(map[string]StatusBucket),
		Daily:     []DailyBucket{},
	}
	for _, s := range models.OrderStatuses {
		stats.ByStatus[s] = StatusBucket{}
	}

	days := make(map[string]*DailyBucket)
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		stats.Daily = append(stats.Daily, DailyBucket{Date: key})
	}
	for i := range stats.Daily {
		days[stats.Daily[i].Date] = &stats.Daily[i]
	}

	var inRange []models.Order
	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			continue
		}
		created := o.CreatedAt.At(loc)
		if !r.Contains(created) {
			continue
		}
		inRange = append(inRange, o)

		revenue := int64(0)
		if !o.IsCancelled() {
			revenue = o.TotalAmount.Int64()
		}

		stats.TotalOrders++
		stats.TotalRevenue += revenue

		bucket := stats.ByStatus[o.Status]
		bucket.Count++
		bucket.Revenue += revenue
		stats.ByStatus[o.Status] = bucket

		if day, ok := days[created.Format(dateLayout)]; ok {
			day.Orders++
			day.Revenue += revenue
		}
	}

	if paid := stats.TotalOrders - stats.ByStatus[models.StatusCancelled].Count; paid > 0 {
		stats.AverageOrder = stats.TotalRevenue / int64(paid)
	}

	sort.SliceStable(inRange, func(i, j int) bool {
		return inRange[i].CreatedAt.At(loc).After(inRange[j].CreatedAt.At(loc))
	})
	if len(inRange) > recentLimit {
		inRange = inRange[:recentLimit]
	}
	stats.RecentOrders = inRange
	if stats.RecentOrders == nil {
		stats.RecentOrders = []models.Order{}
	}

	return stats
}
