package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

var stopwords = toSet(strings.Fields(`a an and are as at be but by can could did do does for from
	had has have how i if in into is it its me my of on or our please show so some tell than that the
	their them then there these they this to was we were what when where which who whom why will
	with would you your about`))

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// documents_fts indexes question and answer of the documents table as
// external content, so bm25() ranks while tenant filtering stays on the
// plain table.
const memoryFTSTableSQL = `
CREATE VIRTUAL TABLE documents_fts USING fts5(
	question, answer,
	content='documents', content_rowid='id',
	tokenize='unicode61'
)`

const memoryFTSRebuildSQL = `INSERT INTO documents_fts(documents_fts) VALUES('rebuild')`

// bm25() is lower for better matches; question hits weigh twice as much.
const memorySearchSQL = `
SELECT documents.file_id, documents.question, documents.answer
FROM documents_fts
JOIN documents ON documents.id = documents_fts.rowid
WHERE documents_fts MATCH ? AND documents.tenant_id = ?
ORDER BY bm25(documents_fts, 2.0, 1.0), documents.id
LIMIT ?`

// MemoryStore is an in-process document store backed by an in-memory
// SQLite database ranking with FTS5 bm25. It is read-only after
// construction.
type MemoryStore struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

// NewMemoryStore loads fx into a new in-memory database. Tenants are inserted
// in ID order and each tenant's documents keep their fixture order.
func NewMemoryStore(fx Fixtures) (*MemoryStore, error) {
	// one connection keeps the single in-memory database alive
	sqlDB, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed, err: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db, err := gorm.Open(&sqlite.Dialector{Conn: sqlDB}, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open memory store failed, err: %w", err)
	}
	s := &MemoryStore{db: db, sqlDB: sqlDB}
	if err := s.load(fx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) load(fx Fixtures) error {
	if err := s.db.AutoMigrate(&DocumentRow{}); err != nil {
		return fmt.Errorf("create documents table failed, err: %w", err)
	}
	tenants := make([]string, 0, len(fx))
	for id := range fx {
		tenants = append(tenants, id)
	}
	sort.Strings(tenants)

	rows := make([]DocumentRow, 0)
	for _, id := range tenants {
		for _, d := range fx[id] {
			rows = append(rows, DocumentRow{TenantID: id, FileID: d.FileID, Question: d.Question, Answer: d.Answer})
		}
	}
	if len(rows) > 0 {
		if err := s.db.CreateInBatches(&rows, 200).Error; err != nil {
			return fmt.Errorf("load fixtures failed, err: %w", err)
		}
	}
	for _, stmt := range []string{memoryFTSTableSQL, memoryFTSRebuildSQL} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("build fts index failed, err: %w", err)
		}
	}
	return nil
}

func (s *MemoryStore) Type() string { return PROVIDER_TYPE_MEMORY }

// Close releases the in-memory database.
func (s *MemoryStore) Close() error { return s.sqlDB.Close() }

func (s *MemoryStore) SearchKeyword(ctx context.Context, tenant schema.Tenant, query string, limit int) ([]schema.RetrievedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	match := matchQuery(query)
	if limit == 0 || match == "" {
		return []schema.RetrievedDocument{}, nil
	}
	var rows []DocumentRow
	if err := s.db.WithContext(ctx).Raw(memorySearchSQL, match, tenant.ID, limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("memory keyword search failed, err: %w", err)
	}
	return toDocuments(rows), nil
}

func (s *MemoryStore) FetchAll(ctx context.Context, tenant schema.Tenant, limit int) ([]schema.RetrievedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	if limit == 0 {
		return []schema.RetrievedDocument{}, nil
	}
	var rows []DocumentRow
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenant.ID).Order("id").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("memory fetch all failed, err: %w", err)
	}
	return toDocuments(rows), nil
}

// matchQuery turns free text into an FTS5 query that ORs the distinct
// non-stopword terms, each quoted so no term is read as an operator.
// It returns "" when nothing searchable is left.
func matchQuery(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}
