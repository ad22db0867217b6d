package calculator

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used by the inference service.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// ForecastDates returns n consecutive calendar days following lastDate.
// Calendar days, not trading days, are used. Arithmetic is done in UTC so month
// and year boundaries never drift with the local zone.
func ForecastDates(lastDate string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	last, err := time.ParseInLocation(DateLayout, lastDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDate, lastDate, err)
	}
	dates := make([]string, n)
	for k := range dates {
		dates[k] = last.AddDate(0, 0, k+1).Format(DateLayout)
	}
	return dates, nil
}
