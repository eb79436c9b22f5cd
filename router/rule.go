package router

import (
	"context"
	"strings"
	"unicode"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

var (
	defaultChartWords = []string{
		"chart", "charts", "graph", "graphs", "plot", "visualize", "visualise",
		"visualization", "visualisation", "diagram", "histogram", "pie",
		"图表", "画图", "可视化",
	}
	defaultDirectWords = []string{
		"hello", "hi", "hey", "thanks", "thank you", "good morning", "good evening",
		"how are you", "who are you", "bye", "goodbye",
		"你好", "谢谢",
	}
)

// directMaxWords bounds how long a greeting-like query may be.
const directMaxWords = 6

// RuleBasedRouter classifies with keyword heuristics and no model call.
type RuleBasedRouter struct {
	chartWords  []string
	directWords []string
}

// NewRuleBasedRouter creates a rule-based router. Nil word lists use defaults.
func NewRuleBasedRouter(chartWords, directWords []string) *RuleBasedRouter {
	if len(chartWords) == 0 {
		chartWords = defaultChartWords
	}
	if len(directWords) == 0 {
		directWords = defaultDirectWords
	}
	return &RuleBasedRouter{chartWords: chartWords, directWords: directWords}
}

// topicWords in a chart request signal a question for the knowledge base too.
var topicWords = []string{"and", "about"}

func (r *RuleBasedRouter) Route(ctx context.Context, query string) schema.Decision {
	queryLower := strings.ToLower(query)
	words := strings.FieldsFunc(queryLower, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})

	d := schema.Decision{Source: SourceRule}
	chartWord := matchAny(queryLower, words, r.chartWords)
	if chartWord != "" {
		d.WantsChart = true
		d.Rationale = "mentions " + chartWord
		// "show a chart of X and tell me about Y" also needs the knowledge base
		if matchAny(queryLower, words, topicWords) != "" {
			d.WantsRetrieval = true
			d.Rationale += " and asks about a topic"
		}
	} else if w := matchAny(queryLower, words, r.directWords); w != "" && len(words) <= directMaxWords {
		d.WantsDirect = true
		d.Rationale = "conversational (" + w + ")"
	} else {
		d.WantsRetrieval = true
		d.Rationale = "information request"
	}

	logger.Infof("router: rule-based decision - %s (%s)", d.Label(), d.Rationale)
	metrics.IncClassification(d.Label(), SourceRule)
	return d
}

// matchAny returns the first keyword found in the query. Single words must
// match a whole token; phrases and CJK keywords match as substrings.
func matchAny(queryLower string, words []string, keywords []string) string {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.ContainsRune(kw, ' ') || !isASCII(kw) {
			if strings.Contains(queryLower, kw) {
				return kw
			}
			continue
		}
		if _, ok := set[kw]; ok {
			return kw
		}
	}
	return ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
