package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"proposalhub/internal/infra/persistence/memory"
	"proposalhub/pkg/domain"
)

func TestSlotAgainstMiniredis(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	slot, err := Open(ctx, Options{Addr: server.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = slot.Close() }()

	if _, err := slot.Load(ctx, "proposalhub:test"); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty, got %v", err)
	}
	if err := slot.Save(ctx, "proposalhub:test", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := server.Get("proposalhub:test")
	if err != nil || got != `{"a":1}` {
		t.Fatalf("unexpected stored value %q %v", got, err)
	}
	if server.TTL("proposalhub:test") != 0 {
		t.Fatalf("snapshot must not expire")
	}
}

func TestStoreRoundTripsThroughRedis(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	defer func() { _ = client.Close() }()
	slot := New(client)

	store, err := memory.Open(ctx, slot)
	if err != nil {
		t.Fatalf("memory open: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateProposal(domain.Proposal{Title: "Cached"})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if !server.Exists(memory.DefaultKey) {
		t.Fatalf("expected snapshot under %s", memory.DefaultKey)
	}
	again, err := memory.Open(ctx, slot)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.ExportState().Proposals; len(got) != 1 {
		t.Fatalf("expected persisted proposal, got %+v", got)
	}
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatalf("expected addr error")
	}
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()
	if _, err := Open(context.Background(), Options{Addr: addr}); err == nil {
		t.Fatalf("expected ping error against closed server")
	}
}
