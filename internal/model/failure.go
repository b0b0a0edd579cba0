package model

import "time"

// SourceState is the retry bookkeeping for one asset against one upstream.
type SourceState struct {
	Attempts      int        `json:"attempts"`
	LastAttemptAt time.Time  `json:"lastAttemptAt"`
	Failed        bool       `json:"failed"`
	LastError     string     `json:"lastError"`
	CooldownUntil *time.Time `json:"cooldownUntil"`
}

// InCooldown reports whether the source must not be retried at now.
func (s *SourceState) InCooldown(now time.Time) bool {
	if s == nil || !s.Failed || s.CooldownUntil == nil {
		return false
	}
	return now.Before(*s.CooldownUntil)
}

// CooldownExpired reports whether a cooldown was set and has since passed.
func (s *SourceState) CooldownExpired(now time.Time) bool {
	if s == nil || s.CooldownUntil == nil {
		return false
	}
	return !now.Before(*s.CooldownUntil)
}

// SourceFailureState groups the per-source states of one asset. A nil entry
// means that source has no recorded failures.
type SourceFailureState struct {
	AssetName string       `json:"assetName"`
	Primary   *SourceState `json:"primary,omitempty"`
	Secondary *SourceState `json:"secondary,omitempty"`
}

// For returns the sub-state for src, or nil.
func (f *SourceFailureState) For(src Source) *SourceState {
	if f == nil {
		return nil
	}
	switch src {
	case SourcePrimary:
		return f.Primary
	case SourceSecondary:
		return f.Secondary
	default:
		return nil
	}
}

// InCooldown reports whether src is cooling down for this asset at now.
func (f *SourceFailureState) InCooldown(src Source, now time.Time) bool {
	return f.For(src).InCooldown(now)
}

// Stale reports whether a cooldown has lapsed on at least one source while
// neither source is still cooling down. Stale records are cleared before the
// next attempt so expired counters do not carry over.
func (f *SourceFailureState) Stale(now time.Time) bool {
	if f == nil {
		return false
	}
	if f.InCooldown(SourcePrimary, now) || f.InCooldown(SourceSecondary, now) {
		return false
	}
	return f.Primary.CooldownExpired(now) || f.Secondary.CooldownExpired(now)
}

// RetryAt returns the earliest time any cooling-down source becomes available,
// or nil when nothing is cooling down.
func (f *SourceFailureState) RetryAt(now time.Time) *time.Time {
	var earliest *time.Time
	for _, src := range Sources {
		s := f.For(src)
		if !s.InCooldown(now) {
			continue
		}
		if earliest == nil || s.CooldownUntil.Before(*earliest) {
			t := *s.CooldownUntil
			earliest = &t
		}
	}
	return earliest
}

// LastError returns the most recently recorded error across both sources.
func (f *SourceFailureState) LastError() string {
	var latest *SourceState
	for _, src := range Sources {
		s := f.For(src)
		if s == nil {
			continue
		}
		if latest == nil || s.LastAttemptAt.After(latest.LastAttemptAt) {
			latest = s
		}
	}
	if latest == nil {
		return ""
	}
	return latest.LastError
}
