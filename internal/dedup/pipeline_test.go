package dedup_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobwatch/internal/dedup"
	"jobwatch/internal/domain"
	"jobwatch/internal/notify"
	"jobwatch/internal/relevance"
	"jobwatch/internal/state"
)

// fakeNotifier records every message and fails on demand.
type fakeNotifier struct {
	sent   []notify.Message
	failOn map[string]error // by title
}

func (f *fakeNotifier) Notify(_ context.Context, msg notify.Message) error {
	f.sent = append(f.sent, msg)
	if err, ok := f.failOn[msg.Title]; ok {
		return err
	}
	return nil
}

func internPipeline(n notify.Notifier) dedup.Pipeline {
	return dedup.Pipeline{
		Relevance: relevance.NewKeywordPredicate([]string{"intern"}, nil, relevance.MissingTitlePass),
		Notifier:  n,
		Policy:    dedup.MarkBeforeNotify,
	}
}

func scenarioRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{ExternalID: "123", Title: "Software Engineer Intern", Link: "https://x/a"},
		{ExternalID: "123", Title: "Software Engineer Intern", Link: "https://x/a"},
		{Title: "Data Intern", Link: "https://x/b"},
	}
}

func TestScenarioTwoRunsWithPersistedState(t *testing.T) {
	ctx := context.Background()
	st := state.NewJSONFileStore(filepath.Join(t.TempDir(), "state", "seen.json"))
	linkB, _ := dedup.DeriveKey("", "https://x/b")

	// Run 1
	seen, lr := st.Load(ctx)
	require.Equal(t, state.LoadAbsent, lr.Status)

	n1 := &fakeNotifier{}
	seen, rep := internPipeline(n1).Process(ctx, scenarioRecords(), seen)
	require.True(t, st.Save(ctx, seen).OK())

	require.Len(t, n1.sent, 2)
	assert.Equal(t, "Software Engineer Intern", n1.sent[0].Title)
	assert.Equal(t, "Data Intern", n1.sent[1].Title)
	assert.Equal(t, []string{"job:123", linkB}, seen.Sorted())
	assert.Equal(t, 2, rep.Notified)
	assert.Equal(t, 1, rep.Suppressed)
	assert.Equal(t, []dedup.Outcome{dedup.SeenNotified, dedup.SeenSuppressed, dedup.SeenNotified},
		outcomes(rep))

	// Run 2
	seen2, lr := st.Load(ctx)
	require.Equal(t, state.LoadOK, lr.Status)

	n2 := &fakeNotifier{}
	seen2, rep2 := internPipeline(n2).Process(ctx, scenarioRecords(), seen2)
	require.True(t, st.Save(ctx, seen2).OK())

	assert.Empty(t, n2.sent)
	assert.Equal(t, 0, rep2.Notified)
	assert.Equal(t, 2, seen2.Len())
}

func TestUnprocessableNeverRecorded(t *testing.T) {
	n := &fakeNotifier{}
	recs := []domain.RawRecord{
		{Title: "Mystery Intern", Company: "Nowhere"},
		{Title: "Other Intern", ExternalID: " ", Link: ""},
	}
	seen, rep := internPipeline(n).Process(context.Background(), recs, dedup.NewSeenSet())

	assert.Zero(t, seen.Len())
	assert.Empty(t, n.sent)
	assert.Equal(t, 2, rep.Unprocessable)
	for _, r := range rep.Records {
		assert.Empty(t, r.Key)
	}
}

func TestIrrelevantRecordedWithoutNotify(t *testing.T) {
	n := &fakeNotifier{}
	recs := []domain.RawRecord{{ExternalID: "9", Title: "Senior Staff Engineer"}}

	seen, rep := internPipeline(n).Process(context.Background(), recs, dedup.NewSeenSet())

	assert.True(t, seen.Has("job:9"))
	assert.Empty(t, n.sent)
	require.Len(t, rep.Records, 1)
	assert.Equal(t, dedup.SeenSuppressed, rep.Records[0].Outcome)
	assert.Equal(t, "not_relevant", rep.Records[0].Reason)
}

func TestMissingTitlePolicy(t *testing.T) {
	recs := []domain.RawRecord{{ExternalID: "5"}}

	for _, tt := range []struct {
		policy     relevance.MissingTitle
		wantNotify int
	}{
		{relevance.MissingTitlePass, 1},
		{relevance.MissingTitleFail, 0},
	} {
		t.Run(string(tt.policy), func(t *testing.T) {
			n := &fakeNotifier{}
			p := dedup.Pipeline{
				Relevance: relevance.NewKeywordPredicate([]string{"intern"}, nil, tt.policy),
				Notifier:  n,
			}
			seen, _ := p.Process(context.Background(), recs, dedup.NewSeenSet())
			assert.Len(t, n.sent, tt.wantNotify)
			assert.True(t, seen.Has("job:5"))
		})
	}
}

func TestNotifyFailureDoesNotStopRun(t *testing.T) {
	sendErr := &notify.Error{Kind: notify.KindTimeout, Err: errors.New("deadline")}
	n := &fakeNotifier{failOn: map[string]error{"A Intern": sendErr}}
	recs := []domain.RawRecord{
		{ExternalID: "1", Title: "A Intern"},
		{ExternalID: "2", Title: "B Intern"},
	}

	seen, rep := internPipeline(n).Process(context.Background(), recs, dedup.NewSeenSet())

	assert.Len(t, n.sent, 2)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Notified)
	assert.Equal(t, dedup.NotifyFailed, rep.Records[0].Outcome)
	assert.Equal(t, notify.KindTimeout, rep.Records[0].ErrKind)
	assert.ErrorIs(t, rep.Records[0].Err, sendErr)

	// Marked before notify: the failed key is still recorded
	assert.True(t, seen.Has("job:1"))
	assert.True(t, seen.Has("job:2"))
}

func TestCommitOnDeliveryRetriesNextRun(t *testing.T) {
	ctx := context.Background()
	sendErr := &notify.Error{Kind: notify.KindConnection, Err: errors.New("refused")}
	recs := []domain.RawRecord{
		{ExternalID: "1", Title: "A Intern"},
		{ExternalID: "1", Title: "A Intern"},
		{ExternalID: "2", Title: "B Intern"},
	}

	n1 := &fakeNotifier{failOn: map[string]error{"A Intern": sendErr}}
	p := internPipeline(n1)
	p.Policy = dedup.CommitOnDelivery

	seen, rep := p.Process(ctx, recs, dedup.NewSeenSet())
	assert.False(t, seen.Has("job:1"), "undelivered key must not be committed")
	assert.True(t, seen.Has("job:2"))
	assert.Len(t, n1.sent, 2, "duplicate within the batch is suppressed")
	assert.Equal(t, 1, rep.Failed)

	n2 := &fakeNotifier{}
	p.Notifier = n2
	seen, rep = p.Process(ctx, recs, seen)
	require.Len(t, n2.sent, 1)
	assert.Equal(t, "A Intern", n2.sent[0].Title)
	assert.True(t, seen.Has("job:1"))
	assert.Equal(t, 1, rep.Notified)
}

func TestNotificationCapDefersRemainder(t *testing.T) {
	recs := []domain.RawRecord{
		{ExternalID: "1", Title: "A Intern"},
		{ExternalID: "2", Title: "B Intern"},
		{ExternalID: "3", Title: "C Intern"},
		{ExternalID: "4", Title: "Manager"},
	}
	n := &fakeNotifier{}
	p := internPipeline(n)
	p.MaxNotifications = 2

	seen, rep := p.Process(context.Background(), recs, dedup.NewSeenSet())
	assert.Len(t, n.sent, 2)
	assert.Equal(t, 1, rep.Deferred)
	assert.False(t, seen.Has("job:3"))
	assert.True(t, seen.Has("job:4"), "irrelevant records are still recorded past the cap")
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	in := dedup.NewSeenSet("job:old")
	out, _ := internPipeline(&fakeNotifier{}).Process(context.Background(),
		[]domain.RawRecord{{ExternalID: "new", Title: "Intern"}}, in)

	assert.Equal(t, 1, in.Len())
	assert.Equal(t, 2, out.Len())
}

type panicNotifier struct{ onTitle string }

func (p panicNotifier) Notify(_ context.Context, msg notify.Message) error {
	if msg.Title == p.onTitle {
		panic("send blew up")
	}
	return nil
}

func TestProcessIntoKeepsProgressOnPanic(t *testing.T) {
	linkB, _ := dedup.DeriveKey("", "https://x/b")
	tests := []struct {
		policy dedup.CommitPolicy
		want   []string
	}{
		{dedup.MarkBeforeNotify, []string{"job:123", linkB}},
		{dedup.CommitOnDelivery, []string{"job:123"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			p := internPipeline(panicNotifier{onTitle: "Data Intern"})
			p.Policy = tt.policy

			seen := dedup.NewSeenSet()
			assert.Panics(t, func() { p.ProcessInto(context.Background(), scenarioRecords(), &seen) })
			assert.Equal(t, tt.want, seen.Sorted())
		})
	}
}

func TestEmptyInput(t *testing.T) {
	n := &fakeNotifier{}
	seen, rep := internPipeline(n).Process(context.Background(), nil, dedup.NewSeenSet("job:1"))
	assert.Equal(t, 1, seen.Len())
	assert.Empty(t, rep.Records)
	assert.Empty(t, n.sent)
}

func TestParseCommitPolicy(t *testing.T) {
	p, err := dedup.ParseCommitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, dedup.MarkBeforeNotify, p)

	p, err = dedup.ParseCommitPolicy("commit_on_delivery")
	require.NoError(t, err)
	assert.Equal(t, dedup.CommitOnDelivery, p)

	_, err = dedup.ParseCommitPolicy("sometimes")
	assert.Error(t, err)
}

func outcomes(rep dedup.Report) []dedup.Outcome {
	out := make([]dedup.Outcome, 0, len(rep.Records))
	for _, r := range rep.Records {
		out = append(out, r.Outcome)
	}
	return out
}
