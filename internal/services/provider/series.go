package provider

import (
	"sort"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/util"
)

type dated struct {
	at    time.Time
	point models.PricePoint
}

// normalize sorts observations by date, keeps the last value per day and
// drops everything before the period start.
func normalize(rows []dated, period string, now time.Time) []models.PricePoint {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	start, ok := util.PeriodStart(period, now)
	if !ok {
		start = time.Time{}
	}
	// Compare on calendar days so a "5y" window includes the boundary date.
	startDay := util.FormatDate(start)

	out := make([]models.PricePoint, 0, len(rows))
	for _, r := range rows {
		if !start.IsZero() && r.point.Date < startDay {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date == r.point.Date {
			out[n-1] = r.point
			continue
		}
		out = append(out, r.point)
	}
	return out
}

// limitTail keeps the trailing limit points; 0 keeps everything.
func limitTail(points []models.PricePoint, limit int) []models.PricePoint {
	if limit <= 0 || limit >= len(points) {
		return points
	}
	return points[len(points)-limit:]
}
