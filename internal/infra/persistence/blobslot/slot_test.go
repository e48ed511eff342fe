package blobslot

import (
	"context"
	"errors"
	"testing"

	"proposalhub/internal/blob"
	"proposalhub/internal/infra/persistence/memory"
	"proposalhub/pkg/domain"
)

func TestSlotOverMemoryBlobs(t *testing.T) {
	ctx := context.Background()
	store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverMemory})
	if err != nil {
		t.Fatalf("blob open: %v", err)
	}
	slot := New(store, "snapshots")
	if got := slot.ObjectKey("proposalhub:store"); got != "snapshots/proposalhub_store.json" {
		t.Fatalf("unexpected object key %s", got)
	}
	if _, err := slot.Load(ctx, "proposalhub:store"); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty, got %v", err)
	}
	if err := slot.Save(ctx, "proposalhub:store", []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := slot.Save(ctx, "proposalhub:store", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	info, rc, err := store.Get(ctx, "snapshots/proposalhub_store.json")
	if err != nil {
		t.Fatalf("get object: %v", err)
	}
	_ = rc.Close()
	if info.ContentType != "application/json" || info.Metadata["slot"] != "proposalhub:store" {
		t.Fatalf("unexpected info %+v", info)
	}
	got, err := slot.Load(ctx, "proposalhub:store")
	if err != nil || string(got) != `{"v":2}` {
		t.Fatalf("unexpected payload %q %v", got, err)
	}
}

func TestStoreOverFilesystemBlobs(t *testing.T) {
	ctx := context.Background()
	fsStore, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("blob open: %v", err)
	}
	slot := New(fsStore, "")
	store, err := memory.Open(ctx, slot)
	if err != nil {
		t.Fatalf("memory open: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateUser(domain.User{Email: "blob@example.com"})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	again, err := memory.Open(ctx, slot)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := len(again.ExportState().Users); got != 3 {
		t.Fatalf("expected 3 users after reload, got %d", got)
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := blob.Open(context.Background(), blob.Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
