package backtest

import (
	"fmt"
	"time"

	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

const DateLayout = "2006-01-02"

// ParseRange reads YYYY-MM-DD bounds in UTC. The upper bound covers the whole
// day. Empty strings leave that side open.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	if from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			return start, end, fmt.Errorf("%w: from %q: %v", utils.ErrInvalidInput, from, err)
		}
		start = t
	}
	if to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return start, end, fmt.Errorf("%w: to %q: %v", utils.ErrInvalidInput, to, err)
		}
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("%w: range %s to %s ends before it starts", utils.ErrInvalidInput, from, to)
	}
	return start, end, nil
}
