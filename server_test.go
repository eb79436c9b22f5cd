package queryorch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/mocks/llmmock"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestHandleAskUsesDefaultTenant(t *testing.T) {
	c := newTestClient(t, scriptedProvider(), nil)

	res := callTool(t, HandleAsk(c), map[string]any{"query": "What is the capital of France?"})
	assert.False(t, res.IsError)

	var resp schema.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, []string{"FILE-001"}, resp.FileIDs)
	assert.Nil(t, resp.ChartConfig)
}

func TestHandleAskExplicitTenant(t *testing.T) {
	c := newTestClient(t, scriptedProvider(), nil)

	res := callTool(t, HandleAsk(c), map[string]any{"query": "Who wrote Romeo and Juliet?", "tenant": "tenant3"})
	var resp schema.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Empty(t, resp.FileIDs)
}

func TestHandleAskBlankTenantUsesDefault(t *testing.T) {
	c := newTestClient(t, scriptedProvider(), nil)

	res := callTool(t, HandleAsk(c), map[string]any{"query": "What is the capital of France?", "tenant": "  "})
	require.False(t, res.IsError)
	var resp schema.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, []string{"FILE-001"}, resp.FileIDs)
}

func TestHandleAskRendersErrors(t *testing.T) {
	p := scriptedProvider()
	p.Rules = append([]llmmock.Rule{{Contains: "User question:", Err: errors.New("quota exceeded")}}, p.Rules...)
	c := newTestClient(t, p, nil)

	res := callTool(t, HandleAsk(c), map[string]any{"query": "What is the capital of France?"})
	assert.True(t, res.IsError)

	var resp schema.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, schema.ProcessingErrorAnswer, resp.Answer)
	require.NotNil(t, resp.Error)
}

func TestHandleAskRequiresQuery(t *testing.T) {
	c := newTestClient(t, scriptedProvider(), nil)
	res := callTool(t, HandleAsk(c), map[string]any{})
	assert.True(t, res.IsError)
}

func TestHandleClassify(t *testing.T) {
	c := newTestClient(t, scriptedProvider(), nil)
	res := callTool(t, HandleClassify(c), map[string]any{"query": "Create a bar chart: Q1 100, Q2 150, Q3 120"})

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, true, got["chart"])
	assert.Equal(t, false, got["retrieval"])
	assert.Equal(t, "llm", got["source"])
}

func TestHandleSearchDocuments(t *testing.T) {
	c := newTestClient(t, scriptedProvider(), nil)
	res := callTool(t, HandleSearchDocuments(c), map[string]any{"query": "Hamlet", "tenant": "tenant2", "limit": 3})

	var got struct {
		Strategy  string                     `json:"strategy"`
		Documents []schema.RetrievedDocument `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "primary", got.Strategy)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "FILE-005", got.Documents[0].FileID)
}

func TestNewServerRegistersTools(t *testing.T) {
	c := newTestClient(t, scriptedProvider(), nil)
	s := NewServer("queryorch", c)
	tools := s.ListTools()
	for _, name := range []string{"ask", "classify", "search-documents"} {
		assert.Contains(t, tools, name)
	}
}
