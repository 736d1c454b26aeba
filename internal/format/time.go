package format

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLayout is the absolute-date layout used when none is configured.
// The {th} token expands to the ordinal suffix of the day of the month.
const DefaultLayout = "Jan 2{th} 2006"

// Formatter renders a post's creation time for display, either as a
// relative phrase ("5 minutes ago") or as an absolute date once the post
// is a day old or relative phrasing is disabled.
type Formatter struct {
	Layout   string
	Location *time.Location
	Relative bool
	Now      func() time.Time
}

func NewFormatter(layout string, loc *time.Location, relative bool) *Formatter {
	if layout == "" {
		layout = DefaultLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{
		Layout:   layout,
		Location: loc,
		Relative: relative,
		Now:      time.Now,
	}
}

func (f *Formatter) Format(createdAt time.Time) string {
	if !f.Relative {
		return f.absolute(createdAt)
	}

	diff := f.Now().Sub(createdAt)
	if diff < 0 {
		diff = -diff
	}
	secs := int64(diff / time.Second)

	switch {
	case secs < 60:
		return fmt.Sprintf("%d seconds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%d minutes ago", secs/60)
	case secs < 86400:
		hours := secs / 3600
		if hours > 1 {
			return fmt.Sprintf("%d hrs ago", hours)
		}
		return "1 hr ago"
	default:
		return f.absolute(createdAt)
	}
}

func (f *Formatter) absolute(t time.Time) string {
	t = t.In(f.Location)

	// Split around {th} so the token never collides with layout letters.
	if strings.Contains(f.Layout, "{th}") {
		parts := strings.Split(f.Layout, "{th}")
		for i := range parts {
			parts[i] = t.Format(parts[i])
		}
		return strings.Join(parts, ordinalSuffix(t.Day()))
	}

	return t.Format(f.Layout)
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
