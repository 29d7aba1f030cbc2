package database

import (
	"context"
	"testing"
)

func TestOnCommit_RunsImmediatelyWithoutAmbientTransaction(t *testing.T) {
	ran := false
	OnCommit(context.Background(), func() { ran = true })
	if !ran {
		t.Error("Expected the hook to run immediately outside a transaction")
	}
}

func TestOnCommit_QueuesInsideAmbientTransaction(t *testing.T) {
	ctx, hooks := ContextWithHooks(context.Background())

	ran := false
	OnCommit(ctx, func() { ran = true })
	if ran {
		t.Error("Expected the hook to stay queued until commit")
	}
	if hooks.Len() != 1 {
		t.Errorf("Expected 1 queued hook, got %d", hooks.Len())
	}

	hooks.Run()
	if !ran {
		t.Error("Expected the hook to run on commit")
	}
}

func TestHooks_RunPreservesOrderAndClears(t *testing.T) {
	ctx, hooks := ContextWithHooks(context.Background())

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		OnCommit(ctx, func() { order = append(order, i) })
	}

	hooks.Run()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("Expected hooks to fire in queue order, got %v", order)
	}
	if hooks.Len() != 0 {
		t.Errorf("Expected the queue cleared after Run, got %d", hooks.Len())
	}

	hooks.Run()
	if len(order) != 3 {
		t.Error("A second Run must not refire cleared hooks")
	}
}

func TestHooks_DroppedOnRollbackPath(t *testing.T) {
	// a failed transaction never calls Run; the queued work is simply dropped
	ctx, hooks := ContextWithHooks(context.Background())

	ran := false
	OnCommit(ctx, func() { ran = true })

	// the caller observes the error and discards the hook collector
	if hooks.Len() != 1 {
		t.Fatalf("Expected 1 queued hook, got %d", hooks.Len())
	}
	if ran {
		t.Error("Expected the hook not to run on the rollback path")
	}
}
