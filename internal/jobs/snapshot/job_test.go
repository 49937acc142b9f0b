package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

type rankingSourceStub struct {
	fastest []pgrepo.LeaderboardRow
	highest []pgrepo.LeaderboardRow
	err     error
}

func (s *rankingSourceStub) FastestTotal(context.Context, string, int, int) ([]pgrepo.LeaderboardRow, error) {
	return s.fastest, s.err
}

func (s *rankingSourceStub) HighestStage(context.Context, string, int, int) ([]pgrepo.LeaderboardRow, error) {
	return s.highest, s.err
}

type snapshotSinkStub struct {
	inserts map[string][]pgrepo.LeaderboardRow
	at      time.Time
}

func (s *snapshotSinkStub) InsertSnapshot(_ context.Context, mode, _ string, entries []pgrepo.LeaderboardRow, at time.Time) error {
	if s.inserts == nil {
		s.inserts = map[string][]pgrepo.LeaderboardRow{}
	}
	s.inserts[mode] = entries
	s.at = at
	return nil
}

func TestRunPersistsBothModes(t *testing.T) {
	now := time.Date(2026, time.March, 1, 6, 0, 0, 0, time.UTC)
	source := &rankingSourceStub{
		fastest: []pgrepo.LeaderboardRow{{UserID: "u1", Score: 120_000}},
		highest: []pgrepo.LeaderboardRow{{UserID: "u2", Score: 42}},
	}
	sink := &snapshotSinkStub{}

	job := &Job{
		source: source,
		sink:   sink,
		now:    func() time.Time { return now },
		logger: zap.NewNop(),
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.inserts["fastest_total"]) != 1 {
		t.Fatalf("fastest_total snapshot missing")
	}
	if len(sink.inserts["highest_stage"]) != 1 {
		t.Fatalf("highest_stage snapshot missing")
	}
	if !sink.at.Equal(now) {
		t.Fatalf("snapshot timestamp %v, want %v", sink.at, now)
	}
}

func TestRunSkipsEmptyLeaderboards(t *testing.T) {
	sink := &snapshotSinkStub{}
	job := &Job{
		source: &rankingSourceStub{},
		sink:   sink,
		now:    time.Now,
		logger: zap.NewNop(),
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.inserts) != 0 {
		t.Fatalf("empty leaderboard produced snapshots")
	}
}

func TestRunPropagatesQueryErrors(t *testing.T) {
	job := &Job{
		source: &rankingSourceStub{err: errors.New("connection reset")},
		sink:   &snapshotSinkStub{},
		now:    time.Now,
		logger: zap.NewNop(),
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error from failing source")
	}
}
