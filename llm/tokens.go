package llm

import (
	"strings"
	"sync"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			logger.Warnf("llm: tiktoken encoding %s unavailable, counting words instead: %v", tokenEncoding, err)
			return
		}
		enc = e
	})
	return enc
}

// CountTokens estimates how many tokens text occupies in a prompt.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}
