package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"proposalhub/internal/events"
	"proposalhub/pkg/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type failingSlot struct {
	*Slot
	fail bool
}

func (f *failingSlot) Save(ctx context.Context, key string, payload []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Slot.Save(ctx, key, payload)
}

type brokenSlot struct{}

func (brokenSlot) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenSlot) Save(context.Context, string, []byte) error { return nil }

func createProposal(t *testing.T, store *Store, title string) domain.Proposal {
	t.Helper()
	var created domain.Proposal
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProposal(domain.Proposal{Title: title})
		return err
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return created
}

func TestNewStoreStartsFromSeed(t *testing.T) {
	store := NewStore(WithClock(fixedClock))
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		users := v.ListUsers()
		if len(users) != 2 {
			t.Fatalf("expected 2 seed users, got %d", len(users))
		}
		admin, ok := v.FindUserByEmail("ADMIN@proposalhub.local")
		if !ok || admin.ID != 1 || admin.Role != domain.RoleAdmin {
			t.Fatalf("unexpected admin: %+v", admin)
		}
		customer, ok := v.FindUser(2)
		if !ok || customer.Company != "Acme Corp" {
			t.Fatalf("unexpected customer: %+v", customer)
		}
		if c := v.Counters(); c.User != 3 || c.Proposal != 1 {
			t.Fatalf("unexpected counters: %+v", c)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestRunInTransactionPersistsAndPublishes(t *testing.T) {
	slot := NewSlot()
	store, err := Open(context.Background(), slot, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var got []events.StoreChanged
	store.Subscribe(func(ev events.StoreChanged) { got = append(got, ev) })

	p := createProposal(t, store, "Website Redesign")
	if p.ID != 1 || p.Status != domain.StatusDraft || p.Content != nil {
		t.Fatalf("unexpected proposal: %+v", p)
	}
	if !p.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected clock timestamp, got %v", p.CreatedAt)
	}
	if len(got) != 1 || !got[0].Touches(domain.EntityProposal) {
		t.Fatalf("expected one proposal event, got %+v", got)
	}

	data, err := slot.Load(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("load persisted: %v", err)
	}
	var persisted map[string]json.RawMessage
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	for _, key := range []string{"users", "proposals", "proposalFiles", "proposalQuestions", "proposalAnswers", "shareTokens", "collaborations", "nextId"} {
		if _, ok := persisted[key]; !ok {
			t.Fatalf("persisted blob missing %s", key)
		}
	}

	reopened, err := Open(context.Background(), slot)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	snapshot := reopened.ExportState()
	if len(snapshot.Proposals) != 1 || snapshot.Proposals[0].Title != "Website Redesign" {
		t.Fatalf("expected reloaded proposal, got %+v", snapshot.Proposals)
	}
	if snapshot.NextID.Proposal != 2 {
		t.Fatalf("expected proposal counter 2, got %d", snapshot.NextID.Proposal)
	}
}

func TestRunInTransactionErrorLeavesStateUntouched(t *testing.T) {
	store := NewStore()
	notified := 0
	store.Subscribe(func(events.StoreChanged) { notified++ })
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateProposal(domain.Proposal{Title: "Discarded"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := len(store.ExportState().Proposals); got != 0 {
		t.Fatalf("expected rollback, got %d proposals", got)
	}
	if store.ExportState().NextID.Proposal != 1 {
		t.Fatalf("expected counter rollback")
	}
	if notified != 0 {
		t.Fatalf("expected no notification, got %d", notified)
	}
}

func TestFailedSaveKeepsPreviousState(t *testing.T) {
	slot := &failingSlot{Slot: NewSlot()}
	store, err := Open(context.Background(), slot)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	createProposal(t, store, "Kept")
	notified := 0
	store.Subscribe(func(events.StoreChanged) { notified++ })

	slot.fail = true
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProposal(domain.Proposal{Title: "Lost"})
		return err
	})
	if err == nil {
		t.Fatalf("expected save error")
	}
	state := store.ExportState()
	if len(state.Proposals) != 1 || state.NextID.Proposal != 2 {
		t.Fatalf("expected previous state, got %+v", state.Proposals)
	}
	if notified != 0 {
		t.Fatalf("expected no notification on failed save")
	}
}

func TestEmptyTransactionDoesNotNotify(t *testing.T) {
	store := NewStore()
	notified := 0
	store.Subscribe(func(events.StoreChanged) { notified++ })
	changes, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, _ = tx.FindProposal(42)
		return nil
	})
	if err != nil || changes != nil {
		t.Fatalf("unexpected result: %v %v", changes, err)
	}
	if notified != 0 {
		t.Fatalf("expected no notification")
	}
}

func TestListenerCanReadStore(t *testing.T) {
	store := NewStore()
	var seen int
	store.Subscribe(func(events.StoreChanged) {
		_ = store.View(context.Background(), func(v domain.TransactionView) error {
			seen = len(v.ListProposals())
			return nil
		})
	})
	createProposal(t, store, "Visible")
	if seen != 1 {
		t.Fatalf("expected listener to observe committed state, got %d", seen)
	}
}

func TestOpenFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	for name, payload := range map[string][]byte{
		"malformed": []byte("{not json"),
		"array":     []byte("[]"),
		"null":      []byte("null"),
	} {
		t.Run(name, func(t *testing.T) {
			slot := NewSlot()
			_ = slot.Save(ctx, DefaultKey, payload)
			store, err := Open(ctx, slot)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			state := store.ExportState()
			if len(state.Users) != 2 || state.NextID.User != 3 {
				t.Fatalf("expected seed state, got %+v", state.NextID)
			}
		})
	}
}

func TestOpenKeepsReadableSectionsOfMalformedBlob(t *testing.T) {
	ctx := context.Background()
	slot := NewSlot()
	payload := []byte(`{
		"users": [{"id": 1, "email": "owner@example.com", "role": "admin", "enabled": true}],
		"proposals": [{"id": 7, "title": "Kept", "status": "draft", "content": null}],
		"shareTokens": {},
		"nextId": {"user": 2, "proposal": 8}
	}`)
	if err := slot.Save(ctx, DefaultKey, payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	store, err := Open(ctx, slot, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	state := store.ExportState()
	if len(state.Proposals) != 1 || state.Proposals[0].ID != 7 {
		t.Fatalf("readable proposals must survive a malformed sibling: %+v", state.Proposals)
	}
	if len(state.Users) != 1 || state.Users[0].Email != "owner@example.com" {
		t.Fatalf("readable users must survive a malformed sibling: %+v", state.Users)
	}
	if state.ShareTokens == nil || len(state.ShareTokens) != 0 {
		t.Fatalf("malformed share tokens should be replaced by the seed section: %+v", state.ShareTokens)
	}

	created := createProposal(t, store, "Next")
	if created.ID != 8 {
		t.Fatalf("expected id 8 after repair, got %d", created.ID)
	}
	reopened, err := Open(ctx, slot)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := len(reopened.ExportState().Proposals); got != 2 {
		t.Fatalf("expected both proposals persisted, got %d", got)
	}
}

func TestOpenPropagatesSlotErrors(t *testing.T) {
	if _, err := Open(context.Background(), brokenSlot{}); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestOpenWithCustomKey(t *testing.T) {
	ctx := context.Background()
	slot := NewSlot()
	store, err := Open(ctx, slot, WithKey("tenant-a"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	createProposal(t, store, "Scoped")
	if _, err := slot.Load(ctx, DefaultKey); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected default key untouched, got %v", err)
	}
	if _, err := slot.Load(ctx, "tenant-a"); err != nil {
		t.Fatalf("expected custom key written: %v", err)
	}
}

func TestImportStateAndFlush(t *testing.T) {
	ctx := context.Background()
	slot := NewSlot()
	store, _ := Open(ctx, slot)
	snapshot := store.ExportState()
	snapshot.Proposals = append(snapshot.Proposals, domain.Proposal{ID: 9, Title: "Imported", Status: domain.StatusDraft})
	snapshot.NextID.Proposal = 10
	store.ImportState(snapshot)
	if _, err := slot.Load(ctx, DefaultKey); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("import must not persist")
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	reopened, _ := Open(ctx, slot)
	if got := reopened.ExportState().Proposals; len(got) != 1 || got[0].ID != 9 {
		t.Fatalf("unexpected flushed proposals: %+v", got)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	store := NewStore()
	p := createProposal(t, store, "Original")
	content := json.RawMessage(`{"a":1}`)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateProposal(p.ID, func(p *domain.Proposal) error {
			p.Content = content
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	content[2] = 'b'
	_ = store.View(context.Background(), func(v domain.TransactionView) error {
		got, _ := v.FindProposal(p.ID)
		if string(got.Content) != `{"a":1}` {
			t.Fatalf("store aliased caller content: %s", got.Content)
		}
		got.Content[2] = 'z'
		again, _ := v.FindProposal(p.ID)
		if string(again.Content) != `{"a":1}` {
			t.Fatalf("view returned shared content")
		}
		return nil
	})
}
