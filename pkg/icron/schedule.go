package icron

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Parser accepts standard five-field expressions, an optional leading
// seconds field and descriptors such as @daily.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// Parse validates cronExpr with Parser.
func Parse(cronExpr string) (cron.Schedule, error) {
	schedule, err := Parser.Parse(strings.TrimSpace(cronExpr))
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// GetTriggerInfo reports the previous and next firing of cronExpr around refTime.
// Last is zero when no firing happened within the past year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
		Last:       previous(schedule, refTime),
	}
	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	info.TimeUntilNext = info.Next.Sub(refTime)

	return info, nil
}

func previous(schedule cron.Schedule, refTime time.Time) time.Time {
	for window := time.Minute; window <= 366*24*time.Hour; window *= 2 {
		candidate := schedule.Next(refTime.Add(-window))
		if candidate.After(refTime) {
			continue
		}
		// walk forward to the latest firing not after refTime
		for {
			next := schedule.Next(candidate)
			if next.After(refTime) {
				return candidate
			}
			candidate = next
		}
	}
	return time.Time{}
}
