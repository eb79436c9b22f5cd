package docstore

import (
	"context"
	"testing"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFixtures = `
tenants:
  tenant1:
    - file_id: FILE-001
      question: What is the capital of France?
      answer: The capital of France is Paris.
    - file_id: FILE-002
      question: How does photosynthesis work?
      answer: Plants convert light into chemical energy.
    - file_id: FILE-003
      question: Which city hosts the Louvre?
      answer: The Louvre is in Paris, France.
  tenant2:
    - file_id: FILE-004
      question: Who wrote Romeo and Juliet?
      answer: William Shakespeare.
`

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	fx, err := ParseFixtures([]byte(testFixtures))
	require.NoError(t, err)
	s, err := NewMemoryStore(fx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fileIDs(docs []schema.RetrievedDocument) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.FileID)
	}
	return ids
}

func TestMemorySearchKeywordRanksByRelevance(t *testing.T) {
	s := newTestStore(t)
	docs, err := s.SearchKeyword(context.Background(), schema.NewTenant("tenant1"), "What is the capital of France?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "FILE-001", docs[0].FileID)
	assert.NotContains(t, fileIDs(docs), "FILE-002")
}

func TestMemorySearchKeywordTenantIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs, err := s.SearchKeyword(ctx, schema.NewTenant("tenant2"), "capital of France", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = s.SearchKeyword(ctx, schema.NewTenant("tenant1"), "Romeo and Juliet", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = s.SearchKeyword(ctx, schema.NewTenant("tenant2"), "Romeo and Juliet", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"FILE-004"}, fileIDs(docs))
}

func TestMemorySearchKeywordStopwordsOnly(t *testing.T) {
	s := newTestStore(t)
	docs, err := s.SearchKeyword(context.Background(), schema.NewTenant("tenant1"), "what is the", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemorySearchKeywordIgnoresQuerySyntax(t *testing.T) {
	s := newTestStore(t)
	docs, err := s.SearchKeyword(context.Background(), schema.NewTenant("tenant1"), `Louvre" OR (NOT *) NEAR`, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"FILE-003"}, fileIDs(docs))
}

func TestMatchQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is the capital of France?", `"capital" OR "france"`},
		{"France, france and FRANCE", `"france"`},
		{"what is the", ""},
		{"", ""},
		{`a"b*c`, `"b" OR "c"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchQuery(tt.in), tt.in)
	}
}

func TestMemorySearchKeywordLimit(t *testing.T) {
	s := newTestStore(t)
	docs, err := s.SearchKeyword(context.Background(), schema.NewTenant("tenant1"), "Paris France", 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestMemoryFetchAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs, err := s.FetchAll(ctx, schema.NewTenant("tenant1"), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"FILE-001", "FILE-002", "FILE-003"}, fileIDs(docs))

	docs, err = s.FetchAll(ctx, schema.NewTenant("tenant1"), 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = s.FetchAll(ctx, schema.NewTenant("nobody"), 100)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SearchKeyword(ctx, schema.NewTenant("tenant1"), "France", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFixturesRequiresFileID(t *testing.T) {
	_, err := ParseFixtures([]byte("tenants:\n  t:\n    - question: q\n      answer: a\n"))
	assert.Error(t, err)
}

func TestNewGatewayMemoryFromFile(t *testing.T) {
	g, err := NewGateway(configFor("memory", "../testdata/knowledge_base.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, PROVIDER_TYPE_MEMORY, g.Type())

	docs, err := g.FetchAll(context.Background(), schema.NewTenant("tenant3"), 100)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestNewGatewayUnknownProvider(t *testing.T) {
	_, err := NewGateway(configFor("mongo", ""), nil)
	assert.Error(t, err)
}
