// ABOUTME: Fixed per-call pauses that keep the pipelines under server rate limits.
// ABOUTME: Also formats the up-front duration estimates shown before long runs.
package mover

import (
	"fmt"
	"strings"
	"time"
)

// Pause lengths per kind of remote call, before any user-configured extra.
// Public posts pause longest so a migration does not flood federated
// timelines.
const (
	throttleDefault       = 5 * time.Second
	throttleStatusPage    = 5 * time.Second
	throttleNonPublicPost = 5 * time.Second
	throttlePublicPost    = 30 * time.Second
	throttleMediaUpload   = 120 * time.Second
)

// estimateMarginPercent pads duration estimates, since real runs also spend
// time on transfers.
const estimateMarginPercent = 5

// throttle sleeps between remote calls, adding the same user-configured
// extra to every pause. The sleep function is swappable for tests.
type throttle struct {
	extra time.Duration
	sleep func(time.Duration)
}

func newThrottle(extra time.Duration) *throttle {
	return &throttle{extra: extra, sleep: time.Sleep}
}

func (t *throttle) pause(d time.Duration) {
	t.sleep(d + t.extra)
}

// cost returns the full pause a call of the given base length will take,
// for estimates.
func (t *throttle) cost(d time.Duration) time.Duration {
	return d + t.extra
}

// withMargin pads an estimated duration by estimateMarginPercent.
func withMargin(d time.Duration) time.Duration {
	return d + d*estimateMarginPercent/100
}

// formatDuration renders a duration as days, hours and minutes for the
// pre-run estimate, e.g. "1 day, 2 hours and 5 minutes".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
