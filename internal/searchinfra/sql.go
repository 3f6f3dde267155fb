package searchinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/search"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// sortColumns maps document fields to the columns they are ordered by, in
// precedence order. Numeric ids sort by value, the rest by text.
var sortColumns = map[string][]string{
	"id":          {"id_num", "id"},
	"title":       {"title"},
	"name":        {"name"},
	"role":        {"role"},
	"imdb_rating": {"imdb_rating"},
}

// matchColumns maps searchable document fields to columns.
var matchColumns = map[string]string{
	"title": "title",
	"name":  "name",
	"role":  "role",
}

type documentRow struct {
	bun.BaseModel `bun:"table:catalog_documents,alias:d"`

	Collection string  `bun:"collection,pk"`
	ID         string   `bun:"id,pk"`
	IDNum      *float64 `bun:"id_num"`
	Title      string   `bun:"title"`
	Name       string   `bun:"name"`
	Role       string   `bun:"role"`
	IMDbRating float64  `bun:"imdb_rating"`
	Source     string   `bun:"source,type:text,notnull"`
}

// OpenSQL opens a bun database for driver and dsn.
func OpenSQL(driver, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case DriverSQLite:
		// in-memory databases exist per connection
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		_ = sqldb.Close()
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// SQLBackend implements search.Backend over a relational document table.
// It is meant for local development and tests where running a search
// cluster is impractical; matching is a case insensitive substring test.
type SQLBackend struct {
	db     *bun.DB
	logger *slog.Logger
}

// NewSQLBackend wraps db.
func NewSQLBackend(db *bun.DB, logger *slog.Logger) *SQLBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLBackend{db: db, logger: logger.With(slog.String("component", "sql_backend"))}
}

// Migrate creates the document table when missing.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*documentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create catalog_documents: %w", err)
	}
	return nil
}

// Index upserts raw JSON documents into collection. Each document must have an
// "id" field; title, name, role and imdb_rating are copied to their columns.
func (b *SQLBackend) Index(ctx context.Context, collection string, docs ...json.RawMessage) error {
	if len(docs) == 0 {
		return nil
	}

	rows := make([]documentRow, 0, len(docs))
	for _, doc := range docs {
		var fields struct {
			ID         catalog.ID `json:"id"`
			Title      string     `json:"title"`
			Name       string     `json:"name"`
			Role       string     `json:"role"`
			IMDbRating float64    `json:"imdb_rating"`
		}
		if err := json.Unmarshal(doc, &fields); err != nil {
			return catalog.InvalidDocument(collection, err)
		}
		if fields.ID == "" {
			return catalog.InvalidDocument(collection, errors.New("missing id"))
		}
		rows = append(rows, documentRow{
			Collection: collection,
			ID:         string(fields.ID),
			IDNum:      numericID(string(fields.ID)),
			Title:      fields.Title,
			Name:       fields.Name,
			Role:       fields.Role,
			IMDbRating: fields.IMDbRating,
			Source:     string(doc),
		})
	}

	_, err := b.db.NewInsert().
		Model(&rows).
		On("CONFLICT (collection, id) DO UPDATE").
		Set("id_num = EXCLUDED.id_num").
		Set("title = EXCLUDED.title").
		Set("name = EXCLUDED.name").
		Set("role = EXCLUDED.role").
		Set("imdb_rating = EXCLUDED.imdb_rating").
		Set("source = EXCLUDED.source").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("index %d documents into %s: %w", len(rows), collection, err)
	}
	return nil
}

// Get returns the document stored under (collection, id).
func (b *SQLBackend) Get(ctx context.Context, collection, id string) (search.Document, error) {
	var row documentRow
	err := b.db.NewSelect().
		Model(&row).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return search.Document{}, catalog.NotFound(collection, id)
	}
	if err != nil {
		return search.Document{}, catalog.BackendUnavailable("sql get", err)
	}
	return search.Document{ID: row.ID, Source: json.RawMessage(row.Source)}, nil
}

// Search runs q against collection.
func (b *SQLBackend) Search(ctx context.Context, collection string, q search.Query) (search.Response, error) {
	var rows []documentRow
	sel := b.db.NewSelect().
		Model(&rows).
		Where("collection = ?", collection)

	if q.Match != nil && len(q.Match.Fields) > 0 {
		tokens := strings.Fields(strings.ToLower(q.Match.Query))
		if len(tokens) == 0 {
			return search.Response{Hits: []search.Document{}}, nil
		}
		cols := make([]string, 0, len(q.Match.Fields))
		for _, f := range q.Match.Fields {
			col, ok := matchColumns[f]
			if !ok {
				return search.Response{}, catalog.InvalidQuery("field %q is not searchable", f)
			}
			cols = append(cols, col)
		}
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, col := range cols {
				for _, tok := range tokens {
					sq = sq.WhereOr("LOWER(?) LIKE ?", bun.Ident(col), "%"+tok+"%")
				}
			}
			return sq
		})
		sel = sel.OrderExpr("imdb_rating DESC")
	}

	for _, s := range q.Sort {
		cols, ok := sortColumns[s.Field]
		if !ok {
			return search.Response{}, catalog.InvalidQuery("field %q is not sortable", s.Field)
		}
		for _, col := range cols {
			if s.Order == search.OrderAsc {
				sel = sel.OrderExpr("? ASC", bun.Ident(col))
			} else {
				sel = sel.OrderExpr("? DESC", bun.Ident(col))
			}
		}
	}
	sel = sel.OrderExpr("id ASC")

	if q.Size > 0 {
		sel = sel.Limit(q.Size)
	}
	if q.From > 0 {
		sel = sel.Offset(q.From)
	}

	total, err := sel.ScanAndCount(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return search.Response{}, catalog.BackendUnavailable("sql search", err)
	}

	out := search.Response{Total: total, Hits: make([]search.Document, 0, len(rows))}
	for _, row := range rows {
		out.Hits = append(out.Hits, search.Document{ID: row.ID, Source: json.RawMessage(row.Source)})
	}
	b.logger.Debug("search",
		slog.String("collection", collection),
		slog.Int("total", total),
		slog.Int("hits", len(out.Hits)),
	)
	return out, nil
}

// Ping checks the database connection.
func (b *SQLBackend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return catalog.BackendUnavailable("sql ping", err)
	}
	return nil
}

// numericID returns the numeric value of id, or nil when id is not a number.
func numericID(id string) *float64 {
	n, err := strconv.ParseFloat(id, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// Close closes the database.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
