package utils

import (
	"fmt"
	"strings"
	"time"

	"brokerdesk/src-server/calendar"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

func NewWhenParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ResolveDate turns user input into a storable timestamp. Exact dates pass
// through untouched; anything else ("tomorrow 3pm", "next friday") is read
// relative to now in the calendar's timezone and returned as RFC 3339.
func ResolveDate(w *when.Parser, raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if _, err := calendar.ParseCivil(raw); err == nil {
		return raw, nil
	}

	result, err := w.Parse(raw, now.In(calendar.Location()))
	if err != nil {
		return "", fmt.Errorf("ResolveDate: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("ResolveDate: can't understand %q", raw)
	}
	return result.Time.In(calendar.Location()).Format(time.RFC3339), nil
}
