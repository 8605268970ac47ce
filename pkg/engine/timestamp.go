package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

var relativeDate = regexp.MustCompile(`^([+-])(\d+)([ymwdh])$`)

func (e *Engine) timestampValue(p models.TimestampParams) (any, error) {
	now := time.Now()

	min, err := resolveDateBound(p.MinDate, now)
	if err != nil {
		return nil, fmt.Errorf("min_date: %w", err)
	}
	max, err := resolveDateBound(p.MaxDate, now)
	if err != nil {
		return nil, fmt.Errorf("max_date: %w", err)
	}
	if min.After(max) {
		return nil, fmt.Errorf("min_date %q resolves after max_date %q", p.MinDate, p.MaxDate)
	}

	ts := e.faker.DateRange(min, max)
	return formatTimestamp(ts, p.Format), nil
}

// resolveDateBound turns "now", a signed offset like "-1y" / "+30d", or an
// absolute "YYYY-MM-DD" date into a point in time.
func resolveDateBound(bound string, now time.Time) (time.Time, error) {
	bound = strings.TrimSpace(bound)
	if bound == "" || bound == "now" {
		return now, nil
	}

	if m := relativeDate.FindStringSubmatch(bound); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("parse offset %q: %w", bound, err)
		}
		if m[1] == "-" {
			n = -n
		}
		switch m[3] {
		case "y":
			return now.AddDate(n, 0, 0), nil
		case "m":
			return now.AddDate(0, n, 0), nil
		case "w":
			return now.AddDate(0, 0, 7*n), nil
		case "d":
			return now.AddDate(0, 0, n), nil
		case "h":
			return now.Add(time.Duration(n) * time.Hour), nil
		}
	}

	ts, err := time.Parse("2006-01-02", bound)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date bound %q (want now, ±offset, or YYYY-MM-DD)", bound)
	}
	return ts, nil
}

// strftime directives mapped onto Go reference-time layout fragments.
var strftimeLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'B': "January",
	'b': "Jan",
	'A': "Monday",
	'a': "Mon",
	'p': "PM",
	'j': "002",
	'Z': "MST",
	'z': "-0700",
}

// formatTimestamp renders a timestamp per the field's format: "iso" for
// RFC 3339, "timestamp" for unix seconds, otherwise a strftime-style pattern.
func formatTimestamp(ts time.Time, format string) any {
	switch format {
	case "", "iso":
		return ts.Format(time.RFC3339)
	case "timestamp":
		return ts.Unix()
	}
	return ts.Format(strftimeToLayout(format))
}

// strftimeToLayout converts a strftime pattern to a Go time layout. Unknown
// directives are kept literally.
func strftimeToLayout(format string) string {
	var layout strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i == len(format)-1 {
			layout.WriteByte(format[i])
			continue
		}
		i++
		if format[i] == '%' {
			layout.WriteByte('%')
			continue
		}
		if fragment, ok := strftimeLayouts[format[i]]; ok {
			layout.WriteString(fragment)
		} else {
			layout.WriteByte('%')
			layout.WriteByte(format[i])
		}
	}
	return layout.String()
}
