package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/docsanddecks/attendance-bot/internal/repo"
)

type fakeScoreRepo struct {
	member    map[string]string
	memberErr error

	score    string
	scoreErr error

	overall    map[string]string
	overallErr error
}

func (f *fakeScoreRepo) MemberByIdentity(_ context.Context, _ *gorm.DB, _ string, _ int64) (map[string]string, error) {
	return f.member, f.memberErr
}

func (f *fakeScoreRepo) AssignmentScore(_ context.Context, _ *gorm.DB, _, _ string) (string, error) {
	return f.score, f.scoreErr
}

func (f *fakeScoreRepo) OverallScore(_ context.Context, _ *gorm.DB, _, _ string) (map[string]string, error) {
	return f.overall, f.overallErr
}

func linkedMember() map[string]string {
	return map[string]string{"Full Name": "Jane Amara Doe", repo.HeaderEmail: "jane@example.com"}
}

func TestScore_AssignmentScore(t *testing.T) {
	cases := []struct {
		name      string
		repo      *fakeScoreRepo
		wantScore string
		wantErr   error
	}{
		{"scored", &fakeScoreRepo{member: linkedMember(), score: "87"}, "87", nil},
		{"not linked", &fakeScoreRepo{memberErr: repo.ErrNotFound}, "", ErrNotLinked},
		{"no email", &fakeScoreRepo{member: map[string]string{"Full Name": "Jane"}}, "", ErrNoEmail},
		{"no row", &fakeScoreRepo{member: linkedMember(), scoreErr: repo.ErrNotFound}, "", ErrNoScore},
		{"empty cell", &fakeScoreRepo{member: linkedMember(), score: ""}, "", ErrNoScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &ScoreService{Repo: tc.repo, RosterSheet: "Members", OverallSheet: "Overall Scores"}
			got, err := svc.AssignmentScore(context.Background(), 42, "Assignment 1")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.wantScore {
				t.Fatalf("score = %q, want %q", got, tc.wantScore)
			}
		})
	}
}

func TestScore_Overall(t *testing.T) {
	want := map[string]string{repo.HeaderEmail: "jane@example.com", "Total": "91"}
	svc := &ScoreService{
		Repo:         &fakeScoreRepo{member: linkedMember(), overall: want},
		RosterSheet:  "Members",
		OverallSheet: "Overall Scores",
	}

	rec, err := svc.Overall(context.Background(), 42)
	if err != nil {
		t.Fatalf("Overall: %v", err)
	}
	if rec["Total"] != "91" {
		t.Fatalf("rec = %v", rec)
	}
}

func TestScore_OverallMissingRow(t *testing.T) {
	svc := &ScoreService{
		Repo:         &fakeScoreRepo{member: linkedMember(), overallErr: repo.ErrNotFound},
		RosterSheet:  "Members",
		OverallSheet: "Overall Scores",
	}

	if _, err := svc.Overall(context.Background(), 42); !errors.Is(err, ErrNoScore) {
		t.Fatalf("err = %v, want ErrNoScore", err)
	}
}
