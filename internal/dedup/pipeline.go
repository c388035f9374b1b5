package dedup

import (
	"context"
	"fmt"

	"jobwatch/internal/domain"
	"jobwatch/internal/logger"
	"jobwatch/internal/notify"
	"jobwatch/internal/relevance"
)

// Outcome is the terminal state of one record in a run.
type Outcome string

const (
	Unprocessable  Outcome = "unprocessable"
	SeenSuppressed Outcome = "seen_suppressed"
	SeenNotified   Outcome = "seen_notified"
	NotifyFailed   Outcome = "notify_failed"
	CapDeferred    Outcome = "cap_deferred"
)

// CommitPolicy says when a new relevant key enters the durable set.
type CommitPolicy string

const (
	// MarkBeforeNotify records the key before sending. A failed send is never
	// retried by a later run.
	MarkBeforeNotify CommitPolicy = "mark_before_notify"
	// CommitOnDelivery records the key only after a successful send. A failed
	// send is retried next run, at the price of a possible duplicate.
	CommitOnDelivery CommitPolicy = "commit_on_delivery"
)

func ParseCommitPolicy(s string) (CommitPolicy, error) {
	switch CommitPolicy(s) {
	case "", MarkBeforeNotify:
		return MarkBeforeNotify, nil
	case CommitOnDelivery:
		return CommitOnDelivery, nil
	default:
		return "", fmt.Errorf("unknown commit policy %q", s)
	}
}

type RecordResult struct {
	Index   int
	Key     string
	Title   string
	Outcome Outcome
	Reason  string      // why it was suppressed, when it was
	ErrKind notify.Kind // set for NotifyFailed
	Err     error
}

// Report summarizes one pass over the extracted records.
type Report struct {
	Records []RecordResult

	Unprocessable int
	Suppressed    int
	Notified      int
	Failed        int
	Deferred      int
}

func (r *Report) add(rr RecordResult) {
	r.Records = append(r.Records, rr)
	switch rr.Outcome {
	case Unprocessable:
		r.Unprocessable++
	case SeenSuppressed:
		r.Suppressed++
	case SeenNotified:
		r.Notified++
	case NotifyFailed:
		r.Failed++
	case CapDeferred:
		r.Deferred++
	}
}

type Pipeline struct {
	Relevance relevance.Predicate
	Notifier  notify.Notifier
	Policy    CommitPolicy

	// MaxNotifications caps sends per run; 0 means no cap. Records over the
	// cap stay out of the seen set so a later run picks them up.
	MaxNotifications int

	Log *logger.Logger
}

// Process walks records in order and returns the updated seen set. The input
// set is not modified.
func (p Pipeline) Process(ctx context.Context, records []domain.RawRecord, seen SeenSet) (SeenSet, Report) {
	out := seen.Clone()
	rep := p.ProcessInto(ctx, records, &out)
	return out, rep
}

// ProcessInto is Process recording keys directly into seen. A key is in seen
// before the next record is looked at, including when a notifier panics.
func (p Pipeline) ProcessInto(ctx context.Context, records []domain.RawRecord, seen *SeenSet) Report {
	log := p.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.Component("pipeline")

	if seen == nil {
		seen = &SeenSet{}
	}

	// Keys handled this run but not committed; suppresses repeats within the batch
	staged := NewSeenSet()

	var rep Report
	for i, rec := range records {
		rr := RecordResult{Index: i, Title: rec.Title}

		key, ok := DeriveKey(rec.ExternalID, rec.Link)
		if !ok {
			rr.Outcome = Unprocessable
			log.Debug("skipped record without id or link", "index", i, "title", rec.Title)
			rep.add(rr)
			continue
		}
		rr.Key = key

		if seen.Has(key) || staged.Has(key) {
			rr.Outcome = SeenSuppressed
			rr.Reason = "already_seen"
			rep.add(rr)
			continue
		}

		if p.Relevance != nil && !p.Relevance.IsRelevant(rec.Title) {
			// Record it anyway so it is not re-evaluated every run
			seen.Add(key)
			rr.Outcome = SeenSuppressed
			rr.Reason = "not_relevant"
			log.Debug("not relevant", "key", key, "title", rec.Title)
			rep.add(rr)
			continue
		}

		if p.MaxNotifications > 0 && rep.Notified+rep.Failed >= p.MaxNotifications {
			staged.Add(key)
			rr.Outcome = CapDeferred
			rr.Reason = "notification_cap"
			rep.add(rr)
			continue
		}

		if p.Policy == CommitOnDelivery {
			staged.Add(key)
		} else {
			seen.Add(key)
		}

		if err := p.Notifier.Notify(ctx, notify.MessageFromRecord(rec)); err != nil {
			rr.Outcome = NotifyFailed
			rr.ErrKind = notify.KindOf(err)
			rr.Err = err
			log.Error("notification failed",
				"key", key, "title", rec.Title, "company", rec.Company,
				"kind", rr.ErrKind, "err", err)
			rep.add(rr)
			continue
		}

		if p.Policy == CommitOnDelivery {
			seen.Add(key)
		}
		rr.Outcome = SeenNotified
		rep.add(rr)
	}

	if rep.Deferred > 0 {
		log.Warn("notification cap reached", "cap", p.MaxNotifications, "deferred", rep.Deferred)
	}
	log.Info("processed records",
		"total", len(records),
		"notified", rep.Notified,
		"suppressed", rep.Suppressed,
		"unprocessable", rep.Unprocessable,
		"failed", rep.Failed,
		"seen", seen.Len())

	return rep
}
