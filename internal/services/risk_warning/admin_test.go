package risk_warning

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tradespotter/brokerhub/internal/adapters/outbound/memory"
	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

type adminFixture struct {
	admin    *AdminService
	repo     *memory.TemplateRepository
	shared   *memory.TemplateCache
	events   *memory.EventSink
	resolver *Resolver
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	repo := memory.NewTemplateRepository()
	shared := memory.NewTemplateCache()
	events := memory.NewEventSink()

	store, err := NewLayeredStore(shared, repo, nil)
	if err != nil {
		t.Fatalf("NewLayeredStore: %v", err)
	}
	resolver, err := NewResolver(Config{}, store, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	admin, err := NewAdminService(AdminConfig{Origin: "test-instance"}, repo, resolver, shared, events)
	if err != nil {
		t.Fatalf("NewAdminService: %v", err)
	}
	return &adminFixture{admin: admin, repo: repo, shared: shared, events: events, resolver: resolver}
}

// --- Test: NewAdminService ---

func TestNewAdminService_Validation(t *testing.T) {
	repo := memory.NewTemplateRepository()
	resolver, err := NewResolver(Config{}, repo, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if _, err := NewAdminService(AdminConfig{}, nil, resolver, nil, nil); err == nil {
		t.Error("expected error for nil repo")
	}
	if _, err := NewAdminService(AdminConfig{}, repo, nil, nil, nil); err == nil {
		t.Error("expected error for nil resolver")
	}
	if _, err := NewAdminService(AdminConfig{}, repo, resolver, nil, nil); err != nil {
		t.Errorf("expected optional dependencies to be optional, got %v", err)
	}
}

// --- Test: UpsertTemplate ---

func TestUpsertTemplate_InvalidatesEveryLayer(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.repo.Put("en", entity.BrokerTypeCFD, "Old: {percentage}% lose.")

	if got := f.resolver.Resolve(ctx, 70, "cfd", "en"); got != "Old: 70% lose." {
		t.Fatalf("unexpected initial result %q", got)
	}
	if f.shared.Len() != 1 {
		t.Fatalf("expected shared cache to be populated, got %d", f.shared.Len())
	}

	rt, err := f.admin.UpsertTemplate(ctx, "EN", "CFD", "New: {percentage}% lose.")
	if err != nil {
		t.Fatalf("UpsertTemplate: %v", err)
	}
	if rt.CacheKey() != "en:cfd" {
		t.Errorf("expected normalized key en:cfd, got %s", rt.CacheKey())
	}
	if rt.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
	if f.shared.Len() != 0 {
		t.Errorf("expected shared entry to be deleted, got %d entries", f.shared.Len())
	}

	if got := f.resolver.Resolve(ctx, 70, "cfd", "en"); got != "New: 70% lose." {
		t.Errorf("expected new template to be served, got %q", got)
	}

	events := f.events.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != outbound.EventTypeTemplateUpserted || ev.GetCacheKey() != "en:cfd" || ev.Origin != "test-instance" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestUpsertTemplate_RepairsLiteralPercentage(t *testing.T) {
	f := newAdminFixture(t)

	rt, err := f.admin.UpsertTemplate(context.Background(), "de", "forex", "Forex ist riskant. 77% verlieren Geld.")
	if err != nil {
		t.Fatalf("UpsertTemplate: %v", err)
	}
	if rt.Template != "Forex ist riskant. {percentage}% verlieren Geld." {
		t.Errorf("expected repaired template, got %q", rt.Template)
	}

	stored, err := f.repo.GetTemplate(context.Background(), "de", entity.BrokerTypeForex)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if stored.Template != rt.Template {
		t.Errorf("expected repaired template to be stored, got %q", stored.Template)
	}
}

func TestUpsertTemplate_RejectsInvalid(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.admin.UpsertTemplate(context.Background(), "en", "cfd", "No number here.")
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("expected ErrInvalidTemplate, got %v", err)
	}
	if f.events.Len() != 0 {
		t.Error("expected no event for a rejected write")
	}
}

func TestUpsertTemplate_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newAdminFixture(t)
	f.events.FailWith(errors.New("sns unavailable"))

	if _, err := f.admin.UpsertTemplate(context.Background(), "en", "cfd", "{percentage}% lose."); err != nil {
		t.Fatalf("expected write to succeed, got %v", err)
	}
	if _, err := f.repo.GetTemplate(context.Background(), "en", entity.BrokerTypeCFD); err != nil {
		t.Errorf("expected template to be stored, got %v", err)
	}
}

// writeDuringReadStore runs during once, after the table read returned and
// before the caller can back-fill any cache layer.
type writeDuringReadStore struct {
	inner  outbound.TemplateStore
	once   sync.Once
	during func()
}

func (s *writeDuringReadStore) GetTemplate(ctx context.Context, lang string, bt entity.BrokerType) (*entity.RiskTemplate, error) {
	rt, err := s.inner.GetTemplate(ctx, lang, bt)
	s.once.Do(s.during)
	return rt, err
}

func TestAdminWriteDuringReadIsNotOverwrittenByStaleText(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, admin *AdminService)
	}{
		{
			name: "upsert",
			write: func(t *testing.T, admin *AdminService) {
				if _, err := admin.UpsertTemplate(context.Background(), "en", "cfd", "NEW {percentage}%"); err != nil {
					t.Errorf("UpsertTemplate: %v", err)
				}
			},
		},
		{
			name: "clear",
			write: func(t *testing.T, admin *AdminService) {
				if err := admin.repo.UpsertTemplate(context.Background(), &entity.RiskTemplate{
					LanguageCode: "en", BrokerType: entity.BrokerTypeCFD, Template: "NEW {percentage}%",
				}); err != nil {
					t.Errorf("UpsertTemplate: %v", err)
				}
				admin.ClearCache(context.Background())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewTemplateRepository()
			repo.Put("en", entity.BrokerTypeCFD, "OLD {percentage}%")
			shared := memory.NewTemplateCache()

			racing := &writeDuringReadStore{inner: repo}
			store, err := NewLayeredStore(shared, racing, nil)
			if err != nil {
				t.Fatalf("NewLayeredStore: %v", err)
			}
			resolver, err := NewResolver(Config{}, store, nil)
			if err != nil {
				t.Fatalf("NewResolver: %v", err)
			}
			admin, err := NewAdminService(AdminConfig{Origin: "test-instance"}, repo, resolver, shared, nil)
			if err != nil {
				t.Fatalf("NewAdminService: %v", err)
			}
			racing.during = func() { tt.write(t, admin) }

			ctx := context.Background()
			if got := resolver.Resolve(ctx, 10, "cfd", "en"); got != "OLD 10%" {
				t.Fatalf("expected the in-flight read to return OLD 10%%, got %q", got)
			}
			if tmpl, ok := shared.Template("en", entity.BrokerTypeCFD); ok {
				t.Fatalf("expected no back-fill after the write, shared cache holds %q", tmpl)
			}
			if got := resolver.Resolve(ctx, 10, "cfd", "en"); got != "NEW 10%" {
				t.Errorf("expected NEW 10%% after the write, got %q", got)
			}
			if tmpl, _ := shared.Template("en", entity.BrokerTypeCFD); tmpl != "NEW {percentage}%" {
				t.Errorf("expected shared cache to hold the new template, got %q", tmpl)
			}
		})
	}
}

// --- Test: DeleteTemplate ---

func TestDeleteTemplate(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.repo.Put("de", entity.BrokerTypeCFD, "DE: {percentage}%")
	f.repo.Put("en", entity.BrokerTypeCFD, "EN: {percentage}%")

	if got := f.resolver.Resolve(ctx, 50, "cfd", "de"); got != "DE: 50%" {
		t.Fatalf("unexpected initial result %q", got)
	}

	if err := f.admin.DeleteTemplate(ctx, "de", "cfd"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if got := f.resolver.Resolve(ctx, 50, "cfd", "de"); got != "EN: 50%" {
		t.Errorf("expected English fallback after delete, got %q", got)
	}

	events := f.events.EventsOfType(outbound.EventTypeTemplateDeleted)
	if len(events) != 1 || events[0].GetCacheKey() != "de:cfd" {
		t.Errorf("expected one delete event for de:cfd, got %v", events)
	}
}

func TestDeleteTemplate_NotFound(t *testing.T) {
	f := newAdminFixture(t)

	err := f.admin.DeleteTemplate(context.Background(), "fr", "cfd")
	if !errors.Is(err, outbound.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if f.events.Len() != 0 {
		t.Error("expected no event for a failed delete")
	}
}

// --- Test: ClearCache ---

func TestAdminClearCache(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.repo.Put("en", entity.BrokerTypeCFD, "EN: {percentage}%")

	f.resolver.Resolve(ctx, 50, "cfd", "en")
	f.admin.ClearCache(ctx)

	if f.shared.Len() != 0 {
		t.Errorf("expected shared cache to be cleared, got %d", f.shared.Len())
	}
	f.resolver.Resolve(ctx, 50, "cfd", "en")
	if calls := f.repo.GetCalls("en", entity.BrokerTypeCFD); calls != 2 {
		t.Errorf("expected refetch after clear, got %d queries", calls)
	}

	events := f.events.EventsOfType(outbound.EventTypeCacheCleared)
	if len(events) != 1 || events[0].GetCacheKey() != "" {
		t.Errorf("expected one cache-wide clear event, got %v", events)
	}
}

// --- Test: ListTemplates ---

func TestListTemplates(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	for _, rt := range StaticTemplateEntries() {
		if err := f.repo.UpsertTemplate(ctx, rt); err != nil {
			t.Fatalf("UpsertTemplate: %v", err)
		}
	}

	templates, err := f.admin.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(templates) != len(StaticTemplateEntries()) {
		t.Errorf("expected %d templates, got %d", len(StaticTemplateEntries()), len(templates))
	}
}
