package fixup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenDateUnset is the stored value of a generic date with no value.
const GenDateUnset = "0"

// GenDatePrecision qualifies a generic date.
type GenDatePrecision int

// Precision values as stored in the last digit.
const (
	PrecisionBefore GenDatePrecision = iota
	PrecisionExact
	PrecisionApproximate
	PrecisionAfter
)

// GenDate is a possibly partial date: month and day may be zero.
type GenDate struct {
	BC        bool
	Year      int
	Month     int
	Day       int
	Precision GenDatePrecision
}

// IsEmpty reports whether the date is unset.
func (g GenDate) IsEmpty() bool {
	return g == GenDate{}
}

// String renders the stored form: optional '-', YYYYMMDD, precision digit.
func (g GenDate) String() string {
	if g.IsEmpty() {
		return GenDateUnset
	}
	sign := ""
	if g.BC {
		sign = "-"
	}
	return fmt.Sprintf("%s%04d%02d%02d%d", sign, g.Year, g.Month, g.Day, g.Precision)
}

var errGenDate = errors.New("invalid generic date")

// ParseGenDate parses the stored form of a generic date.
func ParseGenDate(s string) (GenDate, error) {
	s = strings.TrimSpace(s)
	if s == GenDateUnset {
		return GenDate{}, nil
	}
	var g GenDate
	if strings.HasPrefix(s, "-") {
		g.BC = true
		s = s[1:]
	}
	if len(s) != 9 {
		return GenDate{}, fmt.Errorf("%w: %q has %d digits, want 9", errGenDate, s, len(s))
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return GenDate{}, fmt.Errorf("%w: %q is not numeric", errGenDate, s)
		}
	}
	g.Year, _ = strconv.Atoi(s[0:4])
	g.Month, _ = strconv.Atoi(s[4:6])
	g.Day, _ = strconv.Atoi(s[6:8])
	p, _ := strconv.Atoi(s[8:9])
	g.Precision = GenDatePrecision(p)

	switch {
	case g.Year < 1:
		return GenDate{}, fmt.Errorf("%w: year %d", errGenDate, g.Year)
	case g.Month > 12:
		return GenDate{}, fmt.Errorf("%w: month %d", errGenDate, g.Month)
	case g.Month == 0 && g.Day != 0:
		return GenDate{}, fmt.Errorf("%w: day without month", errGenDate)
	case g.Precision > PrecisionAfter:
		return GenDate{}, fmt.Errorf("%w: precision %d", errGenDate, g.Precision)
	case g.Day > daysIn(g.Year, g.Month):
		return GenDate{}, fmt.Errorf("%w: day %d of month %d", errGenDate, g.Day, g.Month)
	}
	return g, nil
}

func daysIn(year, month int) int {
	if month == 0 {
		return 0
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
