package domain

// DispatchStatus is the result of one channel publish attempt.
type DispatchStatus string

const (
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
	DispatchSkipped DispatchStatus = "skipped"
)

// Skip reasons.
const (
	ReasonTwitterDisabled     = "twitter_disabled"
	ReasonTwitterUnavailable  = "twitter_unavailable"
	ReasonTelegramUnavailable = "telegram_unavailable"
	ReasonNoChannel           = "no_channel_for_stance"
)

// DispatchOutcome records a single (channel, entry) publish decision.
type DispatchOutcome struct {
	Channel   Channel        `json:"channel"`
	Recipient string         `json:"recipient,omitempty"`
	EntryID   string         `json:"entry_id"`
	Status    DispatchStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// DispatchReport collects outcomes for one source's new entries.
type DispatchReport struct {
	Outcomes []DispatchOutcome `json:"outcomes,omitempty"`
}

func (r *DispatchReport) add(o DispatchOutcome) { r.Outcomes = append(r.Outcomes, o) }

// Sent records a successful publish.
func (r *DispatchReport) Sent(t NotificationTarget, entryID string) {
	r.add(DispatchOutcome{Channel: t.Channel, Recipient: t.Recipient, EntryID: entryID, Status: DispatchSent})
}

// Failed records a failed publish.
func (r *DispatchReport) Failed(t NotificationTarget, entryID string, err error) {
	r.add(DispatchOutcome{Channel: t.Channel, Recipient: t.Recipient, EntryID: entryID, Status: DispatchFailed, Error: err.Error()})
}

// Skipped records a deliberate non-publish.
func (r *DispatchReport) Skipped(ch Channel, entryID, reason string) {
	r.add(DispatchOutcome{Channel: ch, EntryID: entryID, Status: DispatchSkipped, Reason: reason})
}

// Count returns the number of outcomes with the given status.
func (r DispatchReport) Count(status DispatchStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// For returns the outcomes for one entry and channel.
func (r DispatchReport) For(entryID string, ch Channel) []DispatchOutcome {
	var out []DispatchOutcome
	for _, o := range r.Outcomes {
		if o.EntryID == entryID && o.Channel == ch {
			out = append(out, o)
		}
	}
	return out
}

// SourceOutcome is the terminal state of one source's pipeline.
type SourceOutcome string

const (
	OutcomeBootstrapped  SourceOutcome = "bootstrapped"
	OutcomeNoChanges     SourceOutcome = "no_changes"
	OutcomeNewEntries    SourceOutcome = "new_entries"
	OutcomeFetchFailed   SourceOutcome = "fetch_failed"
	OutcomeStoreFailed   SourceOutcome = "store_failed"
	OutcomePersistFailed SourceOutcome = "persist_failed"
)

// Failed reports whether the outcome counts as a source failure.
func (o SourceOutcome) Failed() bool {
	switch o {
	case OutcomeFetchFailed, OutcomeStoreFailed, OutcomePersistFailed:
		return true
	}
	return false
}

// SourceReport summarizes one source for the invocation.
type SourceReport struct {
	Source     string         `json:"source"`
	Outcome    SourceOutcome  `json:"outcome"`
	NewEntries int            `json:"new_entries"`
	Persisted  bool           `json:"persisted"`
	Errors     []string       `json:"errors,omitempty"`
	Dispatch   DispatchReport `json:"dispatch"`
}

// InvocationReport aggregates per-source reports in configuration order.
type InvocationReport struct {
	Sources []SourceReport `json:"sources"`
}

// Processed returns the number of sources handled.
func (r InvocationReport) Processed() int { return len(r.Sources) }

// Failed returns the number of sources that ended in a failure outcome.
func (r InvocationReport) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Outcome.Failed() {
			n++
		}
	}
	return n
}

// NewEntries returns the total number of new entries across sources.
func (r InvocationReport) NewEntries() int {
	n := 0
	for _, s := range r.Sources {
		n += s.NewEntries
	}
	return n
}
