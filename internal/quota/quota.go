package quota

import (
	"fmt"

	"voicecast/internal/model"
	"voicecast/internal/plan"
)

// Kind names the limit that triggered a denial, so callers can surface a
// precise upgrade prompt.
type Kind string

const (
	KindCharacters Kind = "characters"
	KindCalls      Kind = "calls"
)

// ExceededError reports a quota denial together with the snapshot and the
// limits it was judged against.
type ExceededError struct {
	Kind  Kind
	Usage model.UsagePeriod
	Limit plan.Limits
}

func (e *ExceededError) Error() string {
	switch e.Kind {
	case KindCalls:
		return fmt.Sprintf("monthly API call limit exceeded (%d/%d)", e.Usage.APICalls, e.Limit.APICalls)
	default:
		return fmt.Sprintf("monthly character limit exceeded (%d used of %d)", e.Usage.CharactersUsed, e.Limit.MonthlyCharacters)
	}
}

// Check evaluates the usage snapshot plus the in-flight request against the
// plan's caps. The snapshot may be stale relative to concurrently in-flight
// commits, so a burst can land slightly past the cap. The commit itself is
// always a single atomic increment.
func Check(p plan.Plan, usage model.UsagePeriod, requestedCharacters int) error {
	if p.Limits.MonthlyCharacters != plan.Unlimited &&
		usage.CharactersUsed+requestedCharacters > p.Limits.MonthlyCharacters {
		return &ExceededError{Kind: KindCharacters, Usage: usage, Limit: p.Limits}
	}
	if p.Limits.APICalls != plan.Unlimited && usage.APICalls >= p.Limits.APICalls {
		return &ExceededError{Kind: KindCalls, Usage: usage, Limit: p.Limits}
	}
	return nil
}
