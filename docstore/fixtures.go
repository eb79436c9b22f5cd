package docstore

import (
	"fmt"
	"os"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
	"gopkg.in/yaml.v3"
)

// Fixtures maps tenant ID to that tenant's documents, in insertion order.
type Fixtures map[string][]schema.RetrievedDocument

type fixturesFile struct {
	Tenants Fixtures `yaml:"tenants"`
}

// ParseFixtures decodes a fixtures document:
//
//	tenants:
//	  tenant1:
//	    - file_id: FILE-001
//	      question: ...
//	      answer: ...
func ParseFixtures(data []byte) (Fixtures, error) {
	var f fixturesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures failed, err: %w", err)
	}
	for tenant, docs := range f.Tenants {
		for i, d := range docs {
			if d.FileID == "" {
				return nil, fmt.Errorf("fixtures: tenant %s document %d has no file_id", tenant, i)
			}
		}
	}
	if f.Tenants == nil {
		f.Tenants = Fixtures{}
	}
	return f.Tenants, nil
}

// LoadFixtures reads and parses a fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s failed, err: %w", path, err)
	}
	return ParseFixtures(data)
}
