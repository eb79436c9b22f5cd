package docstore

import (
	"context"
	"fmt"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DocumentRow is a tenant's Q&A document as stored in postgres. The
// search_vector column is generated by the database (see migrations).
type DocumentRow struct {
	ID       uint   `gorm:"primaryKey"`
	TenantID string `gorm:"column:tenant_id;type:varchar(64);index;not null"`
	FileID   string `gorm:"column:file_id;type:varchar(128);not null"`
	Question string `gorm:"column:question;type:text;not null"`
	Answer   string `gorm:"column:answer;type:text;not null"`
}

func (DocumentRow) TableName() string { return "documents" }

// keywordSearchSQL ORs the query's lexemes so any matching term qualifies,
// then ranks by cover density.
const keywordSearchSQL = `
WITH q AS (
	SELECT to_tsquery('simple', coalesce(string_agg(quote_literal(l), ' | '), '')) AS query
	FROM unnest(tsvector_to_array(to_tsvector('english', ?))) AS l
)
SELECT d.file_id, d.question, d.answer
FROM documents d, q
WHERE d.tenant_id = ? AND d.search_vector @@ q.query
ORDER BY ts_rank_cd(d.search_vector, q.query) DESC, d.id
LIMIT ?`

// PostgresGateway reads documents with postgres full text search. It opens a
// connection per call and closes it before returning.
type PostgresGateway struct {
	dsn string
}

func NewPostgresGateway(dsn string) *PostgresGateway {
	return &PostgresGateway{dsn: dsn}
}

func (g *PostgresGateway) Type() string { return PROVIDER_TYPE_POSTGRES }

func (g *PostgresGateway) withDB(ctx context.Context, fn func(db *gorm.DB) error) error {
	if g.dsn == "" {
		return fmt.Errorf("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(g.dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return fmt.Errorf("open postgres failed, err: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres handle failed, err: %w", err)
	}
	defer sqlDB.Close()
	return fn(db.WithContext(ctx))
}

func (g *PostgresGateway) SearchKeyword(ctx context.Context, tenant schema.Tenant, query string, limit int) ([]schema.RetrievedDocument, error) {
	limit = clampLimit(limit)
	if limit == 0 {
		return []schema.RetrievedDocument{}, nil
	}
	var rows []DocumentRow
	err := g.withDB(ctx, func(db *gorm.DB) error {
		return db.Raw(keywordSearchSQL, query, tenant.ID, limit).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("postgres keyword search failed, err: %w", err)
	}
	return toDocuments(rows), nil
}

func (g *PostgresGateway) FetchAll(ctx context.Context, tenant schema.Tenant, limit int) ([]schema.RetrievedDocument, error) {
	limit = clampLimit(limit)
	if limit == 0 {
		return []schema.RetrievedDocument{}, nil
	}
	var rows []DocumentRow
	err := g.withDB(ctx, func(db *gorm.DB) error {
		return db.Where("tenant_id = ?", tenant.ID).Order("file_id, id").Limit(limit).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("postgres fetch all failed, err: %w", err)
	}
	return toDocuments(rows), nil
}

// Insert stores documents for tenant. Used by seeding tools and tests.
func (g *PostgresGateway) Insert(ctx context.Context, tenant schema.Tenant, docs []schema.RetrievedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]DocumentRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, DocumentRow{TenantID: tenant.ID, FileID: d.FileID, Question: d.Question, Answer: d.Answer})
	}
	return g.withDB(ctx, func(db *gorm.DB) error {
		return db.Select("TenantID", "FileID", "Question", "Answer").Create(&rows).Error
	})
}

func toDocuments(rows []DocumentRow) []schema.RetrievedDocument {
	out := make([]schema.RetrievedDocument, 0, len(rows))
	for _, r := range rows {
		out = append(out, schema.RetrievedDocument{FileID: r.FileID, Question: r.Question, Answer: r.Answer})
	}
	return out
}
