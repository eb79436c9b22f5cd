package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// fakeStore records calls and returns canned results.
type fakeStore struct {
	search    []schema.RetrievedDocument
	all       []schema.RetrievedDocument
	searchErr error
	allErr    error

	searchLimits []int
	allLimits    []int
	tenants      []string
}

func (f *fakeStore) SearchKeyword(ctx context.Context, tenant schema.Tenant, query string, limit int) ([]schema.RetrievedDocument, error) {
	f.searchLimits = append(f.searchLimits, limit)
	f.tenants = append(f.tenants, tenant.ID)
	return f.search, f.searchErr
}

func (f *fakeStore) FetchAll(ctx context.Context, tenant schema.Tenant, limit int) ([]schema.RetrievedDocument, error) {
	f.allLimits = append(f.allLimits, limit)
	f.tenants = append(f.tenants, tenant.ID)
	return f.all, f.allErr
}

func (f *fakeStore) Type() string { return "fake" }

var (
	paris = schema.RetrievedDocument{FileID: "FILE-001", Question: "Capital of France?", Answer: "Paris."}
	photo = schema.RetrievedDocument{FileID: "FILE-002", Question: "Photosynthesis?", Answer: "Light to sugar."}
)

func TestRetrievePrimary(t *testing.T) {
	store := &fakeStore{search: []schema.RetrievedDocument{paris}}
	r := New(store, config.RAGConfig{TopK: 5, FallbackLimit: 100})

	res, err := r.Retrieve(context.Background(), schema.NewTenant("tenant1"), "capital of France")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != StrategyPrimary || len(res.Documents) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.allLimits) != 0 {
		t.Fatal("fallback must not run when primary found documents")
	}
	if store.searchLimits[0] != 5 {
		t.Errorf("primary limit = %d, want 5", store.searchLimits[0])
	}
}

func TestRetrieveFallback(t *testing.T) {
	store := &fakeStore{all: []schema.RetrievedDocument{paris, photo}}
	r := New(store, config.RAGConfig{TopK: 5, FallbackLimit: 100})

	res, err := r.Retrieve(context.Background(), schema.NewTenant("tenant1"), "zzz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != StrategyFallback || len(res.Documents) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.allLimits) != 1 || store.allLimits[0] != 100 {
		t.Errorf("fallback limits = %v, want [100]", store.allLimits)
	}
	for _, tenant := range store.tenants {
		if tenant != "tenant1" {
			t.Errorf("store called with tenant %q", tenant)
		}
	}
}

func TestRetrieveEmpty(t *testing.T) {
	store := &fakeStore{}
	res, err := New(store, config.RAGConfig{}).Retrieve(context.Background(), schema.NewTenant("tenant3"), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != StrategyEmpty || res.Documents == nil || len(res.Documents) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if store.searchLimits[0] != DefaultTopK || store.allLimits[0] != DefaultFallbackLimit {
		t.Errorf("defaults not applied: search=%v all=%v", store.searchLimits, store.allLimits)
	}
}

func TestRetrieveClampsFallbackLimit(t *testing.T) {
	store := &fakeStore{}
	r := &TenantRetriever{Store: store, TopK: 5, FallbackLimit: 1000}
	_, _ = r.Retrieve(context.Background(), schema.NewTenant("t"), "q")
	if store.allLimits[0] != config.MaxFetchLimit {
		t.Errorf("fallback limit = %d, want %d", store.allLimits[0], config.MaxFetchLimit)
	}
}

func TestRetrievePropagatesErrors(t *testing.T) {
	boom := errors.New("store down")

	_, err := New(&fakeStore{searchErr: boom}, config.RAGConfig{}).Retrieve(context.Background(), schema.NewTenant("t"), "q")
	if !errors.Is(err, boom) {
		t.Fatalf("expected search error, got %v", err)
	}

	_, err = New(&fakeStore{allErr: boom}, config.RAGConfig{}).Retrieve(context.Background(), schema.NewTenant("t"), "q")
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch-all error, got %v", err)
	}
}
