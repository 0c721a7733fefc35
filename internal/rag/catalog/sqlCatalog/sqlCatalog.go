// Package sqlCatalog keeps the thesis catalog in SQLite or PostgreSQL through database/sql.
package sqlCatalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("catalog")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		normalized_title TEXT NOT NULL,
		authors          TEXT NOT NULL DEFAULT '',
		program          TEXT NOT NULL DEFAULT '',
		year             INTEGER NOT NULL DEFAULT 0,
		abstract         TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		location_ref     TEXT NOT NULL DEFAULT '',
		uploaded_at      BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_normalized_title ON documents (normalized_title)`,
	`CREATE INDEX IF NOT EXISTS documents_program ON documents (program)`,
}

const columns = `id, title, authors, program, year, abstract, status, location_ref, uploaded_at`

type Catalog struct {
	db     *sql.DB
	driver string
}

var _ catalog.Catalog = (*Catalog)(nil)

// Open connects with driver "sqlite" or "pgx" and creates the schema when missing.
func Open(ctx context.Context, driver string, dsn string) (*Catalog, error) {
	if driver != "sqlite" && driver != "pgx" {
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases shared and avoids SQLITE_BUSY on writes
		db.SetMaxOpenConns(1)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging catalog: %w", err)
	}

	c := &Catalog{db: db, driver: driver}
	for _, stmt := range schema {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating catalog schema: %w", err)
		}
	}
	logger.Info("catalog ready", "driver", driver)
	return c, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (c *Catalog) rebind(query string) string {
	if c.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *Catalog) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.CatalogCallTimeout)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (commonModels.DocumentEntity, error) {
	var doc commonModels.DocumentEntity
	var status string
	var uploadedAt int64
	err := row.Scan(&doc.Id, &doc.Title, &doc.Authors, &doc.Program, &doc.Year, &doc.Abstract, &status, &doc.LocationRef, &uploadedAt)
	if err != nil {
		return doc, err
	}
	doc.Status = commonModels.DocStatus(status)
	doc.UploadedAt = time.Unix(0, uploadedAt).UTC()
	return doc, nil
}

func (c *Catalog) queryDocuments(ctx context.Context, query string, args ...any) ([]commonModels.DocumentEntity, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []commonModels.DocumentEntity
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *Catalog) Create(ctx context.Context, doc commonModels.DocumentEntity) (commonModels.DocumentEntity, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(doc.Title) == "" {
		return doc, errors.New("document title is required")
	}
	if doc.Id == "" {
		doc.Id = utils.GetNewUUID()
	}
	if doc.Status == "" {
		doc.Status = commonModels.StatusPending
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx, c.rebind(`INSERT INTO documents
		(id, title, normalized_title, authors, program, year, abstract, status, location_ref, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.Id, doc.Title, catalog.NormalizeTitle(doc.Title), doc.Authors, doc.Program, doc.Year, doc.Abstract,
		string(doc.Status), doc.LocationRef, doc.UploadedAt.UnixNano())
	if err != nil {
		return doc, fmt.Errorf("inserting document: %w", err)
	}
	return doc, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (commonModels.DocumentEntity, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row := c.db.QueryRowContext(ctx, c.rebind(`SELECT `+columns+` FROM documents WHERE id = ?`), id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, ragErrors.ErrNotFound
	}
	return doc, err
}

func (c *Catalog) LookupByNormalizedTitle(ctx context.Context, normalized string) (commonModels.DocumentEntity, bool, error) {
	if normalized == "" {
		return commonModels.DocumentEntity{}, false, nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row := c.db.QueryRowContext(ctx, c.rebind(`SELECT `+columns+` FROM documents
		WHERE normalized_title = ? ORDER BY uploaded_at, id LIMIT 1`), normalized)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, false, nil
	}
	if err != nil {
		return doc, false, err
	}
	return doc, true, nil
}

// likePattern matches query anywhere, with LIKE wildcards in the query taken literally.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
}

func (c *Catalog) SearchText(ctx context.Context, query string, limit int) ([]commonModels.DocumentEntity, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	p := likePattern(query)
	return c.queryDocuments(ctx, `SELECT `+columns+` FROM documents
		WHERE lower(title) LIKE ? ESCAPE '\' OR lower(abstract) LIKE ? ESCAPE '\'
		ORDER BY year DESC, title LIMIT ?`, p, p, limit)
}

func (c *Catalog) SearchTitleAuthors(ctx context.Context, query string, limit int) ([]commonModels.DocumentEntity, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	p := likePattern(query)
	return c.queryDocuments(ctx, `SELECT `+columns+` FROM documents
		WHERE lower(title) LIKE ? ESCAPE '\' OR lower(authors) LIKE ? ESCAPE '\'
		ORDER BY year DESC, title LIMIT ?`, p, p, limit)
}

func (c *Catalog) List(ctx context.Context, filter catalog.ListFilter) (catalog.Page, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = config.CatalogPageSize
	}

	where := " WHERE 1 = 1"
	var args []any
	if filter.Program != "" {
		where += " AND lower(program) = lower(?)"
		args = append(args, filter.Program)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	page := catalog.Page{Page: filter.Page, PageSize: filter.PageSize}
	if err := c.db.QueryRowContext(ctx, c.rebind(`SELECT COUNT(*) FROM documents`+where), args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("counting documents: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	docs, err := c.queryDocuments(ctx, `SELECT `+columns+` FROM documents`+where+`
		ORDER BY uploaded_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return page, fmt.Errorf("listing documents: %w", err)
	}
	page.Documents = docs
	return page, nil
}

func (c *Catalog) SetStatus(ctx context.Context, id string, status commonModels.DocStatus) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	res, err := c.db.ExecContext(ctx, c.rebind(`UPDATE documents SET status = ? WHERE id = ?`), string(status), id)
	return affectedOne(res, err)
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	res, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM documents WHERE id = ?`), id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ragErrors.ErrNotFound
	}
	return nil
}
