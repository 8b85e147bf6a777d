package risk_warning

import (
	"context"
	"errors"
	"testing"

	"github.com/tradespotter/brokerhub/internal/adapters/outbound/memory"
	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

func TestLayeredStore_ReadThrough(t *testing.T) {
	repo := memory.NewTemplateRepository()
	shared := memory.NewTemplateCache()
	repo.Put("en", entity.BrokerTypeCFD, "EN: {percentage}%")

	store, err := NewLayeredStore(shared, repo, nil)
	if err != nil {
		t.Fatalf("NewLayeredStore: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rt, err := store.GetTemplate(ctx, "en", entity.BrokerTypeCFD)
		if err != nil {
			t.Fatalf("GetTemplate: %v", err)
		}
		if rt.Template != "EN: {percentage}%" {
			t.Errorf("unexpected template %q", rt.Template)
		}
	}
	if calls := repo.TotalGetCalls(); calls != 1 {
		t.Errorf("expected one repository query, got %d", calls)
	}
}

func TestLayeredStore_NotFoundIsNotCached(t *testing.T) {
	repo := memory.NewTemplateRepository()
	shared := memory.NewTemplateCache()
	store, err := NewLayeredStore(shared, repo, nil)
	if err != nil {
		t.Fatalf("NewLayeredStore: %v", err)
	}

	_, err = store.GetTemplate(context.Background(), "fr", entity.BrokerTypeCFD)
	if !errors.Is(err, outbound.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if shared.Len() != 0 {
		t.Errorf("expected nothing cached, got %d", shared.Len())
	}
}

func TestLayeredStore_SharedCacheFailureIsBypassed(t *testing.T) {
	repo := memory.NewTemplateRepository()
	shared := memory.NewTemplateCache()
	shared.SetGetError(errors.New("redis down"))
	repo.Put("de", entity.BrokerTypeForex, "DE: {percentage}%")

	store, err := NewLayeredStore(shared, repo, nil)
	if err != nil {
		t.Fatalf("NewLayeredStore: %v", err)
	}

	rt, err := store.GetTemplate(context.Background(), "de", entity.BrokerTypeForex)
	if err != nil {
		t.Fatalf("expected repository result, got %v", err)
	}
	if rt.Template != "DE: {percentage}%" {
		t.Errorf("unexpected template %q", rt.Template)
	}
}

func TestLayeredStore_NilShared(t *testing.T) {
	repo := memory.NewTemplateRepository()
	repo.Put("en", entity.BrokerTypeCFD, "EN: {percentage}%")

	store, err := NewLayeredStore(nil, repo, nil)
	if err != nil {
		t.Fatalf("NewLayeredStore: %v", err)
	}
	if _, err := store.GetTemplate(context.Background(), "en", entity.BrokerTypeCFD); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if _, err := NewLayeredStore(nil, nil, nil); err == nil {
		t.Error("expected error for nil store")
	}
}
