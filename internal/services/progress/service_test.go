package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

type progressStoreStub struct {
	records map[int]pgrepo.ProgressRecord
}

func newProgressStoreStub() *progressStoreStub {
	return &progressStoreStub{records: map[int]pgrepo.ProgressRecord{}}
}

func (s *progressStoreStub) UpsertStage(_ context.Context, userID string, stage int, timeMS int64, deaths, stars int, completed bool) (pgrepo.ProgressRecord, bool, error) {
	existing, ok := s.records[stage]
	if !ok {
		record := pgrepo.ProgressRecord{
			UserID:     userID,
			Stage:      stage,
			BestTimeMS: &timeMS,
			Deaths:     deaths,
			Stars:      stars,
			Completed:  completed,
			UpdatedAt:  time.Now(),
		}
		s.records[stage] = record
		return record, true, nil
	}

	isBest := existing.BestTimeMS == nil || timeMS < *existing.BestTimeMS
	if isBest {
		existing.BestTimeMS = &timeMS
	}
	if deaths < existing.Deaths {
		existing.Deaths = deaths
	}
	if stars > existing.Stars {
		existing.Stars = stars
	}
	existing.Completed = existing.Completed || completed
	s.records[stage] = existing
	return existing, isBest, nil
}

func (s *progressStoreStub) ListByUser(context.Context, string) ([]pgrepo.ProgressRecord, error) {
	var out []pgrepo.ProgressRecord
	for _, record := range s.records {
		out = append(out, record)
	}
	return out, nil
}

type granterStub struct {
	balance int64
	grants  []int64
	reasons []string
}

func (s *granterStub) Grant(_ context.Context, userID string, amount int64, reason string) (pgrepo.WalletRecord, error) {
	s.balance += amount
	s.grants = append(s.grants, amount)
	s.reasons = append(s.reasons, reason)
	return pgrepo.WalletRecord{UserID: userID, SkyCrowns: s.balance, LifetimeEarned: s.balance}, nil
}

func TestSubmitStageGrantsReward(t *testing.T) {
	store := newProgressStoreStub()
	rewards := &granterStub{}
	svc := NewService(store, rewards, nil)

	// Stage 10, 45s clear, no deaths, 3 stars: 63 base + 50 fast + 60 stars.
	result, err := svc.SubmitStage(context.Background(), "user-1", 10, 45_000, 0, 3, true)
	if err != nil {
		t.Fatalf("SubmitStage: %v", err)
	}
	if result.RewardSC != 173 {
		t.Fatalf("expected reward 173, got %d", result.RewardSC)
	}
	if !result.IsBestTime {
		t.Fatalf("first run should be the best time")
	}
	if len(rewards.reasons) != 1 || rewards.reasons[0] != "stage_10" {
		t.Fatalf("unexpected grant reasons %v", rewards.reasons)
	}
}

func TestSubmitStageIncompleteRunEarnsNothing(t *testing.T) {
	store := newProgressStoreStub()
	rewards := &granterStub{}
	svc := NewService(store, rewards, nil)

	result, err := svc.SubmitStage(context.Background(), "user-1", 3, 90_000, 5, 0, false)
	if err != nil {
		t.Fatalf("SubmitStage: %v", err)
	}
	if result.RewardSC != 0 {
		t.Fatalf("incomplete run paid %d", result.RewardSC)
	}
	if len(rewards.grants) != 0 {
		t.Fatalf("wallet touched on incomplete run")
	}
	if store.records[3].Completed {
		t.Fatalf("incomplete run marked stage completed")
	}
}

func TestSubmitStageBestTimeTracking(t *testing.T) {
	store := newProgressStoreStub()
	svc := NewService(store, &granterStub{}, nil)

	if _, err := svc.SubmitStage(context.Background(), "user-1", 1, 80_000, 0, 2, true); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	slower, err := svc.SubmitStage(context.Background(), "user-1", 1, 95_000, 0, 1, true)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if slower.IsBestTime {
		t.Fatalf("slower run flagged as best time")
	}
	if *slower.Record.BestTimeMS != 80_000 {
		t.Fatalf("best time regressed to %d", *slower.Record.BestTimeMS)
	}
	if slower.Record.Stars != 2 {
		t.Fatalf("stars regressed to %d", slower.Record.Stars)
	}

	faster, err := svc.SubmitStage(context.Background(), "user-1", 1, 60_000, 0, 0, true)
	if err != nil {
		t.Fatalf("third submit: %v", err)
	}
	if !faster.IsBestTime {
		t.Fatalf("faster run not flagged as best time")
	}
}

func TestStageRewardBounds(t *testing.T) {
	cases := []struct {
		name   string
		stage  int
		timeMS int64
		deaths int
		stars  int
		want   int64
	}{
		{"floor on disastrous run", 1, 300_000, 20, 0, 10},
		{"base cap on deep stage", 400, 300_000, 0, 0, 250},
		{"quick bonus tier", 5, 100_000, 0, 0, 81},
		{"deaths reduce payout", 5, 100_000, 3, 0, 51},
		{"stars add up", 5, 45_000, 0, 3, 166},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StageReward(tc.stage, tc.timeMS, tc.deaths, tc.stars); got != tc.want {
				t.Fatalf("StageReward(%d, %d, %d, %d) = %d, want %d", tc.stage, tc.timeMS, tc.deaths, tc.stars, got, tc.want)
			}
		})
	}
}

func TestSubmitStageValidation(t *testing.T) {
	svc := NewService(newProgressStoreStub(), &granterStub{}, nil)

	cases := []struct {
		name   string
		userID string
		stage  int
		timeMS int64
		deaths int
		stars  int
	}{
		{"empty user", "", 1, 1000, 0, 0},
		{"zero stage", "user-1", 0, 1000, 0, 0},
		{"stage too deep", "user-1", 501, 1000, 0, 0},
		{"negative time", "user-1", 1, -5, 0, 0},
		{"negative deaths", "user-1", 1, 1000, -1, 0},
		{"too many stars", "user-1", 1, 1000, 0, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SubmitStage(context.Background(), tc.userID, tc.stage, tc.timeMS, tc.deaths, tc.stars, true); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}
