package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

func TestInjectedTxRunner(t *testing.T) {
	boom := errors.New("boom")
	commitErr := errors.New("commit failed")
	cases := []struct {
		name      string
		runner    *InjectedTxRunner
		body      error
		want      error
		bodyRuns  int
		commits   int
		rollbacks int
	}{
		{name: "commit", runner: &InjectedTxRunner{}, bodyRuns: 1, commits: 1},
		{name: "body error", runner: &InjectedTxRunner{}, body: boom, want: boom, bodyRuns: 1, rollbacks: 1},
		{name: "commit failure", runner: &InjectedTxRunner{FailCommit: commitErr}, want: commitErr, bodyRuns: 1, rollbacks: 1},
		{name: "begin failure", runner: &InjectedTxRunner{FailBegin: boom}, want: boom},
		{name: "fails before body", runner: &InjectedTxRunner{FailBeforeBody: boom}, want: boom, rollbacks: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runs := 0
			err := tc.runner.InTx(context.Background(), func(dbctx.Context) error {
				runs++
				return tc.body
			})
			if !errors.Is(err, tc.want) || (tc.want == nil && err != nil) {
				t.Fatalf("err: got=%v want=%v", err, tc.want)
			}
			r := tc.runner
			if runs != tc.bodyRuns || r.BeginCalls != 1 || r.CommitCalls != tc.commits || r.RollbackCalls != tc.rollbacks {
				t.Fatalf("runs=%d begin=%d commit=%d rollback=%d", runs, r.BeginCalls, r.CommitCalls, r.RollbackCalls)
			}
		})
	}
}

func TestInjectedTxRunnerRollsBackInner(t *testing.T) {
	inner := &InjectedTxRunner{}
	commitErr := errors.New("commit failed")
	outer := &InjectedTxRunner{Inner: inner, FailCommit: commitErr}
	if err := outer.InTx(context.Background(), func(dbctx.Context) error { return nil }); !errors.Is(err, commitErr) {
		t.Fatalf("err: %v", err)
	}
	if inner.RollbackCalls != 1 || inner.CommitCalls != 0 {
		t.Fatalf("inner commit=%d rollback=%d", inner.CommitCalls, inner.RollbackCalls)
	}
}
