// Package http exposes the booking metrics API over fiber.
package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"pharmetrics/internal/bookings"
	"pharmetrics/internal/period"
)

const dateLayout = "2006-01-02"

// parsePeriodRequest builds the period request from query parameters.
// A missing period resolves as this_month; unknown descriptors keep the
// same fallback inside period.Resolve.
func parsePeriodRequest(c *fiber.Ctx) (period.Request, error) {
	req := period.Request{Descriptor: period.Descriptor(c.Query("period", string(period.ThisMonth)))}

	if req.Descriptor != period.Custom {
		return req, nil
	}

	start, err := parseDate(c.Query("start"))
	if err != nil {
		return period.Request{}, fmt.Errorf("invalid 'start' date: %w", err)
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		return period.Request{}, fmt.Errorf("invalid 'end' date: %w", err)
	}
	req.StartDate = start
	req.EndDate = end
	return req, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseFilter reads the booking classification filter. shortage=true selects
// internal transfers, shortage=false partner sales; absent applies none.
func parseFilter(c *fiber.Ctx) bookings.Filter {
	var filter bookings.Filter
	switch c.Query("shortage") {
	case "true":
		v := true
		filter.Shortage = &v
	case "false":
		v := false
		filter.Shortage = &v
	}
	return filter
}
