package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soukhub/vitrine/internal/app"
	"github.com/soukhub/vitrine/internal/clock"
	"github.com/soukhub/vitrine/internal/domain"
)

// --- Mocks ---

// mockRepo is an in-memory SlotRepository with the same compare-and-swap
// semantics as the SQLite adapter, guarded by a mutex so the concurrency
// tests exercise real races.
type mockRepo struct {
	mu    sync.Mutex
	slots map[int]domain.Slot

	// onGet, when set, runs at the top of GetByID outside the lock. Tests
	// use it to pin interleavings.
	onGet func(id int)
}

func newMockRepo() *mockRepo {
	m := &mockRepo{slots: make(map[int]domain.Slot)}
	now := time.Now().UTC()
	for id := 1; id <= domain.SlotCount; id++ {
		m.slots[id] = domain.Slot{
			ID:          id,
			Status:      domain.SlotEmpty,
			DraftStatus: domain.DraftEmpty,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return m
}

func (m *mockRepo) GetByID(_ context.Context, id int) (domain.Slot, error) {
	if m.onGet != nil {
		m.onGet(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return s, nil
}

func (m *mockRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.Slot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.Slot
	for id := 1; id <= domain.SlotCount; id++ {
		s := m.slots[id]
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.DraftStatus != nil && s.DraftStatus != *filter.DraftStatus {
			continue
		}
		if filter.Search != "" && !slotMatches(s, filter.Search) {
			continue
		}
		matched = append(matched, s)
	}

	total := len(matched)
	if filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func slotMatches(s domain.Slot, search string) bool {
	search = strings.ToLower(search)
	var texts []string
	if s.Live != nil {
		texts = append(texts, s.Live.Name.EN, s.Live.Name.FR, s.Live.Description.EN, s.Live.Description.FR)
	}
	if s.Draft != nil {
		texts = append(texts, s.Draft.Name.EN, s.Draft.Name.FR, s.Draft.Description.EN, s.Draft.Description.FR)
	}
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), search) {
			return true
		}
	}
	return false
}

func (m *mockRepo) CountByStatus(_ context.Context) (domain.StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts domain.StatusCounts
	for _, s := range m.slots {
		switch s.Status {
		case domain.SlotLive:
			counts.Live++
		case domain.SlotMaintenance:
			counts.Maintenance++
		}
	}
	return counts, nil
}

func (m *mockRepo) UpsertDraft(_ context.Context, id int, draft domain.DraftContent, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return domain.ErrSlotNotFound
	}
	s.Draft = &draft
	s.DraftStatus = domain.DraftDrafting
	s.DraftUpdatedAt = &now
	m.slots[id] = s
	return nil
}

func (m *mockRepo) MarkDraftReady(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[id]
	if s.DraftStatus != domain.DraftDrafting {
		return false, nil
	}
	s.DraftStatus = domain.DraftReady
	m.slots[id] = s
	return true, nil
}

func (m *mockRepo) PublishDraft(_ context.Context, id int, sellerID string, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[id]
	if s.DraftStatus != domain.DraftReady || s.Status == domain.SlotMaintenance {
		return false, nil
	}
	draft := s.Draft
	s.Live = &domain.LiveContent{
		SellerID:    sellerID,
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Currency:    draft.Currency,
		Categories:  draft.Categories,
		Delivery:    draft.Delivery,
		Tags:        draft.Tags,
		Images:      draft.Images,
	}
	s.Status = domain.SlotLive
	s.StartTime = &start
	s.EndTime = &end
	s.Featured = false
	s.ViewCount = 0
	s.Draft = nil
	s.DraftStatus = domain.DraftEmpty
	s.DraftUpdatedAt = nil
	m.slots[id] = s
	return true, nil
}

func (m *mockRepo) ClearDraft(_ context.Context, id int, expected domain.DraftStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[id]
	if s.DraftStatus != expected {
		return false, nil
	}
	s.Draft = nil
	s.DraftStatus = domain.DraftEmpty
	s.DraftUpdatedAt = nil
	m.slots[id] = s
	return true, nil
}

func (m *mockRepo) EnableMaintenance(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return domain.ErrSlotNotFound
	}
	clearLive(&s)
	s.Status = domain.SlotMaintenance
	m.slots[id] = s
	return nil
}

func (m *mockRepo) DisableMaintenance(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[id]
	if s.Status != domain.SlotMaintenance {
		return false, nil
	}
	s.Status = domain.SlotEmpty
	m.slots[id] = s
	return true, nil
}

func (m *mockRepo) ClearLive(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return domain.ErrSlotNotFound
	}
	clearLive(&s)
	s.Status = domain.SlotEmpty
	m.slots[id] = s
	return nil
}

func clearLive(s *domain.Slot) {
	s.Live = nil
	s.StartTime = nil
	s.EndTime = nil
	s.Featured = false
	s.ViewCount = 0
}

func (m *mockRepo) IncrementViews(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[id]
	if s.Status != domain.SlotLive {
		return false, nil
	}
	s.ViewCount++
	m.slots[id] = s
	return true, nil
}

func (m *mockRepo) SetFeatured(_ context.Context, id int, featured bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[id]
	if s.Status != domain.SlotLive {
		return false, nil
	}
	s.Featured = featured
	m.slots[id] = s
	return true, nil
}

// tableValidator validates against the domain transition tables directly,
// keeping app tests free of the fsm adapter.
type tableValidator struct{}

func (tableValidator) ApplySlot(_ context.Context, current domain.SlotStatus, event domain.SlotEvent) (domain.SlotStatus, error) {
	for _, tr := range domain.SlotTransitions {
		if tr.Event == event && tr.Src == current {
			return tr.Dst, nil
		}
	}
	return "", &domain.SlotTransitionError{Event: event, Current: current}
}

func (tableValidator) ApplyDraft(_ context.Context, current domain.DraftStatus, event domain.DraftEvent) (domain.DraftStatus, error) {
	for _, tr := range domain.DraftTransitions {
		if tr.Event == event && tr.Src == current {
			return tr.Dst, nil
		}
	}
	return "", &domain.DraftTransitionError{Event: event, Current: current}
}

type mockDirectory struct {
	sellers map[string]string
}

func (m *mockDirectory) Resolve(_ context.Context, contact string) (string, error) {
	id, ok := m.sellers[contact]
	if !ok {
		return "", domain.ErrSellerNotFound
	}
	return id, nil
}

type mockCleaner struct {
	mu      sync.Mutex
	cleared []int
	err     error
}

func (m *mockCleaner) ClearNamespace(_ context.Context, slotID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cleared = append(m.cleared, slotID)
	return nil
}

type mockAuditor struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *mockAuditor) Record(_ context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditor) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type mockCache struct {
	mu          sync.Mutex
	stats       domain.Stats
	valid       bool
	invalidated int
}

func (m *mockCache) Get(_ context.Context) (domain.Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, m.valid
}

func (m *mockCache) Set(_ context.Context, stats domain.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
	m.valid = true
}

func (m *mockCache) Invalidate(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
	m.invalidated++
}

// --- Fixture ---

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo    *mockRepo
	cleaner *mockCleaner
	auditor *mockAuditor
	cache   *mockCache
	svc     *app.SlotService
}

func newFixture() *fixture {
	repo := newMockRepo()
	cleaner := &mockCleaner{}
	auditor := &mockAuditor{}
	cache := &mockCache{}
	directory := &mockDirectory{sellers: map[string]string{
		"+237600000000": "seller-1",
		"+237699999999": "seller-2",
	}}
	stats := app.NewStatsAggregator(repo, cache)
	svc := app.NewSlotService(repo, tableValidator{}, directory, cleaner, auditor, stats, clock.NewFixed(testNow), nil)
	return &fixture{repo: repo, cleaner: cleaner, auditor: auditor, cache: cache, svc: svc}
}

func chairDraft() domain.DraftContent {
	return domain.DraftContent{
		Name:     domain.LocalizedText{EN: "Chair"},
		Price:    5000,
		Currency: "XAF",
	}
}

// --- Tests ---

func TestSaveDraft_StartsDrafting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.SaveDraft(ctx, "admin", 7, chairDraft()); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}

	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.DraftStatus != domain.DraftDrafting {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftDrafting)
	}
	if slot.Draft == nil || slot.Draft.Name.EN != "Chair" {
		t.Error("draft content not stored")
	}
	if slot.DraftUpdatedAt == nil || !slot.DraftUpdatedAt.Equal(testNow) {
		t.Errorf("DraftUpdatedAt = %v, want %v", slot.DraftUpdatedAt, testNow)
	}
}

func TestSaveDraft_InvalidSlotID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, id := range []int{0, 26, -1} {
		err := f.svc.SaveDraft(ctx, "admin", id, chairDraft())
		var invalidErr *domain.InvalidSlotIDError
		if !errors.As(err, &invalidErr) {
			t.Errorf("id %d: expected InvalidSlotIDError, got %v", id, err)
		}
	}
}

func TestSaveDraft_IdempotentUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.SaveDraft(ctx, "admin", 7, chairDraft()); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	updated := chairDraft()
	updated.Price = 6000
	if err := f.svc.SaveDraft(ctx, "admin", 7, updated); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.DraftStatus != domain.DraftDrafting {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftDrafting)
	}
	if slot.Draft.Price != 6000 {
		t.Errorf("Price = %d, want 6000", slot.Draft.Price)
	}
}

func TestMarkReady_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, chairDraft())

	if err := f.svc.MarkReady(ctx, "admin", 7); err != nil {
		t.Fatalf("MarkReady failed: %v", err)
	}

	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.DraftStatus != domain.DraftReady {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftReady)
	}
}

func TestMarkReady_EmptyDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.svc.MarkReady(ctx, "admin", 7)
	var trErr *domain.DraftTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected DraftTransitionError, got %v", err)
	}
	if trErr.Current != domain.DraftEmpty {
		t.Errorf("current = %q, want %q", trErr.Current, domain.DraftEmpty)
	}

	// Slot unchanged.
	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.DraftStatus != domain.DraftEmpty {
		t.Errorf("DraftStatus = %q, want unchanged %q", slot.DraftStatus, domain.DraftEmpty)
	}
}

func TestMarkReady_IncompleteDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, domain.DraftContent{Name: domain.LocalizedText{EN: "Chair"}})

	err := f.svc.MarkReady(ctx, "admin", 7)
	var vErr *domain.DraftValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected DraftValidationError, got %v", err)
	}

	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.DraftStatus != domain.DraftDrafting {
		t.Errorf("DraftStatus = %q, want unchanged %q", slot.DraftStatus, domain.DraftDrafting)
	}
}

func TestApprove_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, chairDraft())
	mustMarkReady(t, f, 7)

	slot, err := f.svc.Approve(ctx, "admin", 7, "+237600000000", 0)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if slot.Status != domain.SlotLive {
		t.Errorf("Status = %q, want %q", slot.Status, domain.SlotLive)
	}
	if slot.Live == nil {
		t.Fatal("Live should be set")
	}
	if slot.Live.Name.EN != "Chair" {
		t.Errorf("Name.EN = %q, want %q", slot.Live.Name.EN, "Chair")
	}
	if slot.Live.SellerID != "seller-1" {
		t.Errorf("SellerID = %q, want %q", slot.Live.SellerID, "seller-1")
	}
	if slot.DraftStatus != domain.DraftEmpty {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftEmpty)
	}
	if slot.Draft != nil {
		t.Error("Draft should be cleared after approval")
	}
	if slot.Featured {
		t.Error("Featured should reset to false on publish")
	}
	if slot.ViewCount != 0 {
		t.Errorf("ViewCount = %d, want 0", slot.ViewCount)
	}

	// Default duration is 7 days.
	if slot.StartTime == nil || slot.EndTime == nil {
		t.Fatal("timing fields should be set")
	}
	if got := slot.EndTime.Sub(*slot.StartTime); got != 7*24*time.Hour {
		t.Errorf("listing window = %v, want %v", got, 7*24*time.Hour)
	}
}

func TestApprove_CustomDuration(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 4, chairDraft())
	mustMarkReady(t, f, 4)

	slot, err := f.svc.Approve(ctx, "admin", 4, "+237600000000", 30)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if got := slot.EndTime.Sub(*slot.StartTime); got != 30*24*time.Hour {
		t.Errorf("listing window = %v, want %v", got, 30*24*time.Hour)
	}
}

func TestApprove_DurationOutOfBounds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 4, chairDraft())
	mustMarkReady(t, f, 4)

	_, err := f.svc.Approve(ctx, "admin", 4, "+237600000000", 91)
	var vErr *domain.DraftValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected DraftValidationError, got %v", err)
	}
}

func TestApprove_BlockedInMaintenance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, chairDraft())
	mustMarkReady(t, f, 7)
	if err := f.svc.SetMaintenance(ctx, "admin", 7, true); err != nil {
		t.Fatalf("SetMaintenance failed: %v", err)
	}

	_, err := f.svc.Approve(ctx, "admin", 7, "+237600000000", 0)
	var preErr *domain.PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}

	// Draft is untouched: a parked slot keeps its ready draft.
	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.DraftStatus != domain.DraftReady {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftReady)
	}
}

func TestApprove_UnresolvableContact(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, chairDraft())
	mustMarkReady(t, f, 7)

	_, err := f.svc.Approve(ctx, "admin", 7, "+237000000000", 0)
	var resErr *domain.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if !errors.Is(err, domain.ErrSellerNotFound) {
		t.Error("should unwrap to ErrSellerNotFound")
	}

	// No mutation happened.
	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.Status != domain.SlotEmpty || slot.DraftStatus != domain.DraftReady {
		t.Errorf("slot mutated on failed resolution: status=%q draft=%q", slot.Status, slot.DraftStatus)
	}
}

func TestApprove_FallsBackToDraftContact(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	draft := chairDraft()
	draft.SellerContact = "+237699999999"
	mustSaveDraft(t, f, 7, draft)
	mustMarkReady(t, f, 7)

	slot, err := f.svc.Approve(ctx, "admin", 7, "", 0)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if slot.Live.SellerID != "seller-2" {
		t.Errorf("SellerID = %q, want %q", slot.Live.SellerID, "seller-2")
	}
}

func TestApprove_ConcurrentRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 12, chairDraft())
	mustMarkReady(t, f, 12)

	// Hold the first caller at its read until the second has also read, so
	// both observe the ready draft and the conditional write decides.
	bothRead := make(chan struct{})
	var reads sync.Mutex
	seen := 0
	f.repo.onGet = func(int) {
		reads.Lock()
		seen++
		n := seen
		reads.Unlock()
		switch n {
		case 1:
			<-bothRead
		case 2:
			close(bothRead)
		}
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Approve(ctx, "admin", 12, "+237600000000", 0)
		}(i)
	}
	wg.Wait()

	var successes, preconditions int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var preErr *domain.PreconditionError
			if errors.As(err, &preErr) {
				preconditions++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}
	if successes != 1 || preconditions != 1 {
		t.Fatalf("got %d successes and %d precondition failures, want exactly 1 and 1", successes, preconditions)
	}

	// Final state is one coherent listing.
	slot, _ := f.repo.GetByID(ctx, 12)
	if slot.Status != domain.SlotLive || slot.Live == nil || slot.Live.Name.EN != "Chair" {
		t.Error("slot should hold a single coherent live listing")
	}
	if slot.DraftStatus != domain.DraftEmpty {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftEmpty)
	}
}

func TestReject_DiscardsDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, chairDraft())
	mustMarkReady(t, f, 7)

	if err := f.svc.Reject(ctx, "admin", 7, "blurry photos"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	slot, _ := f.repo.GetByID(ctx, 7)
	if slot.DraftStatus != domain.DraftEmpty {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftEmpty)
	}
	if slot.Draft != nil {
		t.Error("draft content should be discarded")
	}

	// The reason lands in the audit trail, not on the slot.
	found := false
	for _, e := range f.auditor.entries {
		if e.Action == "reject" && e.Metadata["reason"] == "blurry photos" {
			found = true
		}
	}
	if !found {
		t.Error("reject reason should be recorded in the audit trail")
	}
}

func TestReject_NotReady(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, chairDraft())

	err := f.svc.Reject(ctx, "admin", 7, "")
	var trErr *domain.DraftTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected DraftTransitionError, got %v", err)
	}
}

func TestSetMaintenance_ForceRetiresLiveListing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	makeLive(t, f, 3)

	if err := f.svc.SetMaintenance(ctx, "admin", 3, true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	slot, _ := f.repo.GetByID(ctx, 3)
	if slot.Status != domain.SlotMaintenance {
		t.Errorf("Status = %q, want %q", slot.Status, domain.SlotMaintenance)
	}
	if slot.Live != nil || slot.StartTime != nil || slot.EndTime != nil {
		t.Error("live content must be cleared when maintenance is enabled")
	}
	if slot.ViewCount != 0 {
		t.Errorf("ViewCount = %d, want 0", slot.ViewCount)
	}

	// Disabling lands on empty, never restores the listing.
	if err := f.svc.SetMaintenance(ctx, "admin", 3, false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	slot, _ = f.repo.GetByID(ctx, 3)
	if slot.Status != domain.SlotEmpty {
		t.Errorf("Status = %q, want %q", slot.Status, domain.SlotEmpty)
	}
}

func TestSetMaintenance_DisableFromEmpty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.svc.SetMaintenance(ctx, "admin", 3, false)
	var trErr *domain.SlotTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected SlotTransitionError, got %v", err)
	}
}

func TestSetMaintenance_KeepsDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 9, chairDraft())
	mustMarkReady(t, f, 9)

	if err := f.svc.SetMaintenance(ctx, "admin", 9, true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	// Maintenance and drafting are independent axes.
	slot, _ := f.repo.GetByID(ctx, 9)
	if slot.Status != domain.SlotMaintenance {
		t.Errorf("Status = %q, want %q", slot.Status, domain.SlotMaintenance)
	}
	if slot.DraftStatus != domain.DraftReady {
		t.Errorf("DraftStatus = %q, want %q", slot.DraftStatus, domain.DraftReady)
	}
}

func TestRemoveProduct_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	makeLive(t, f, 5)

	if err := f.svc.RemoveProduct(ctx, "admin", 5); err != nil {
		t.Fatalf("first remove failed: %v", err)
	}
	slot, _ := f.repo.GetByID(ctx, 5)
	if slot.Status != domain.SlotEmpty || slot.Live != nil {
		t.Error("slot should be empty after removal")
	}

	// Second call succeeds trivially.
	if err := f.svc.RemoveProduct(ctx, "admin", 5); err != nil {
		t.Fatalf("second remove failed: %v", err)
	}
	slot, _ = f.repo.GetByID(ctx, 5)
	if slot.Status != domain.SlotEmpty {
		t.Errorf("Status = %q, want %q", slot.Status, domain.SlotEmpty)
	}
}

func TestRemoveProduct_TriggersImageCleanup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	makeLive(t, f, 5)

	if err := f.svc.RemoveProduct(ctx, "admin", 5); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(f.cleaner.cleared) != 1 || f.cleaner.cleared[0] != 5 {
		t.Errorf("cleared = %v, want [5]", f.cleaner.cleared)
	}
}

func TestRemoveProduct_CleanupFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	makeLive(t, f, 5)
	f.cleaner.err = errors.New("storage unreachable")

	if err := f.svc.RemoveProduct(ctx, "admin", 5); err != nil {
		t.Fatalf("remove should succeed despite cleanup failure, got %v", err)
	}

	slot, _ := f.repo.GetByID(ctx, 5)
	if slot.Status != domain.SlotEmpty || slot.Live != nil {
		t.Error("slot state must be committed even when cleanup fails")
	}
}

func TestStats_SumsToPoolSize(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	makeLive(t, f, 2)
	makeLive(t, f, 5)
	makeLive(t, f, 9)
	if err := f.svc.SetMaintenance(ctx, "admin", 11, true); err != nil {
		t.Fatalf("SetMaintenance failed: %v", err)
	}

	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 25 {
		t.Errorf("Total = %d, want 25", stats.Total)
	}
	if stats.Live != 3 {
		t.Errorf("Live = %d, want 3", stats.Live)
	}
	if stats.Maintenance != 1 {
		t.Errorf("Maintenance = %d, want 1", stats.Maintenance)
	}
	if got := stats.Live + stats.Maintenance + stats.Available; got != 25 {
		t.Errorf("buckets sum to %d, want 25", got)
	}
}

func TestStats_InvalidatedByMutations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Stats(ctx); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if !f.cache.valid {
		t.Fatal("stats should be cached after a read")
	}

	makeLive(t, f, 2)
	if f.cache.valid {
		t.Error("cache should be invalidated by a status mutation")
	}

	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Live != 1 {
		t.Errorf("Live = %d, want 1 after refresh", stats.Live)
	}
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	makeLive(t, f, 2)
	makeLive(t, f, 5)
	makeLive(t, f, 9)

	live := domain.SlotLive
	slots, total, err := f.svc.List(ctx, domain.ListFilter{Status: &live})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}

	wantIDs := map[int]bool{2: true, 5: true, 9: true}
	for _, s := range slots {
		if !wantIDs[s.ID] {
			t.Errorf("unexpected slot %d in live filter", s.ID)
		}
		if s.Live == nil || s.EndTime == nil || s.StartTime == nil || !s.EndTime.After(*s.StartTime) {
			t.Errorf("slot %d violates the live-content invariant", s.ID)
		}
	}
}

func TestRecordView_OnlyCountsLive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	makeLive(t, f, 2)

	if err := f.svc.RecordView(ctx, 2); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}
	slot, _ := f.repo.GetByID(ctx, 2)
	if slot.ViewCount != 1 {
		t.Errorf("ViewCount = %d, want 1", slot.ViewCount)
	}

	// Views on an empty slot are dropped without error.
	if err := f.svc.RecordView(ctx, 3); err != nil {
		t.Fatalf("RecordView on empty slot should not fail: %v", err)
	}
}

func TestSetFeatured_RequiresLive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.svc.SetFeatured(ctx, "admin", 3, true)
	var preErr *domain.PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}

	makeLive(t, f, 3)
	if err := f.svc.SetFeatured(ctx, "admin", 3, true); err != nil {
		t.Fatalf("SetFeatured failed: %v", err)
	}
	slot, _ := f.repo.GetByID(ctx, 3)
	if !slot.Featured {
		t.Error("Featured should be true")
	}
}

func TestAudit_RecordsSuccessfulMutations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mustSaveDraft(t, f, 7, chairDraft())
	mustMarkReady(t, f, 7)
	if _, err := f.svc.Approve(ctx, "reviewer", 7, "+237600000000", 0); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	actions := f.auditor.actions()
	want := []string{"save_draft", "mark_ready", "approve"}
	if len(actions) != len(want) {
		t.Fatalf("got %d audit entries, want %d: %v", len(actions), len(want), actions)
	}
	for i, a := range want {
		if actions[i] != a {
			t.Errorf("actions[%d] = %q, want %q", i, actions[i], a)
		}
	}

	last := f.auditor.entries[len(f.auditor.entries)-1]
	if last.ActorID != "reviewer" {
		t.Errorf("ActorID = %q, want %q", last.ActorID, "reviewer")
	}
	if last.Metadata["seller_id"] != "seller-1" {
		t.Errorf("metadata seller_id = %q, want %q", last.Metadata["seller_id"], "seller-1")
	}
}

func TestCanceledContext_AbortsBeforeWrite(t *testing.T) {
	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.svc.SaveDraft(ctx, "admin", 7, chairDraft())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	slot, _ := f.repo.GetByID(context.Background(), 7)
	if slot.DraftStatus != domain.DraftEmpty {
		t.Error("no write should happen after cancellation")
	}
}

// --- helpers ---

func mustSaveDraft(t *testing.T, f *fixture, id int, draft domain.DraftContent) {
	t.Helper()
	if err := f.svc.SaveDraft(context.Background(), "admin", id, draft); err != nil {
		t.Fatalf("SaveDraft(%d) failed: %v", id, err)
	}
}

func mustMarkReady(t *testing.T, f *fixture, id int) {
	t.Helper()
	if err := f.svc.MarkReady(context.Background(), "admin", id); err != nil {
		t.Fatalf("MarkReady(%d) failed: %v", id, err)
	}
}

func makeLive(t *testing.T, f *fixture, id int) {
	t.Helper()
	mustSaveDraft(t, f, id, chairDraft())
	mustMarkReady(t, f, id)
	if _, err := f.svc.Approve(context.Background(), "admin", id, "+237600000000", 0); err != nil {
		t.Fatalf("Approve(%d) failed: %v", id, err)
	}
}
