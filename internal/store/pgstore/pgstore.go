// Package pgstore implements store.Store on a single PostgreSQL table of json
// documents, partitioned by collection name.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

// Store keeps documents in crm_documents. Identifiers are UUIDs.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc document.Document) (string, error) {
	body, err := doc.Without(document.IDField).MarshalJSON()
	if err != nil {
		return "", apperr.Serialization(err.Error()).WithOp("pgstore.InsertOne")
	}

	id := uuid.New()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO crm_documents (collection, id, body)
		VALUES ($1, $2, $3::json)
	`, collection, id, string(body))
	if err != nil {
		return "", apperr.Unknown(err).WithOp("pgstore.InsertOne")
	}
	if tag.RowsAffected() != 1 {
		return "", apperr.Unacknowledged("insert affected no rows").WithOp("pgstore.InsertOne")
	}
	return id.String(), nil
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (document.Document, error) {
	uid, err := ParseID(id)
	if err != nil {
		return nil, apperr.NotFound("document not found").WithOp("pgstore.FindByID")
	}

	var body []byte
	err = s.pool.QueryRow(ctx, `
		SELECT body FROM crm_documents WHERE collection = $1 AND id = $2
	`, collection, uid).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("document not found").WithOp("pgstore.FindByID")
	}
	if err != nil {
		return nil, apperr.Unknown(err).WithOp("pgstore.FindByID")
	}
	return withID(uid, body)
}

// UpdateByID merges set into the stored body inside a transaction holding a
// row lock, and returns the merged document.
func (s *Store) UpdateByID(ctx context.Context, collection, id string, set []document.Field) (store.UpdateResult, error) {
	uid, err := ParseID(id)
	if err != nil {
		return store.UpdateResult{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.UpdateResult{}, apperr.Unknown(err).WithOp("pgstore.UpdateByID")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	err = tx.QueryRow(ctx, `
		SELECT body FROM crm_documents WHERE collection = $1 AND id = $2 FOR UPDATE
	`, collection, uid).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.UpdateResult{}, nil
	}
	if err != nil {
		return store.UpdateResult{}, apperr.Unknown(err).WithOp("pgstore.UpdateByID")
	}

	current, err := document.ParseJSON(raw)
	if err != nil {
		return store.UpdateResult{}, apperr.Unknown(err).WithOp("pgstore.UpdateByID")
	}
	merged := document.ApplySet(current, set)
	body, err := merged.MarshalJSON()
	if err != nil {
		return store.UpdateResult{}, apperr.Serialization(err.Error()).WithOp("pgstore.UpdateByID")
	}

	tag, err := tx.Exec(ctx, `
		UPDATE crm_documents SET body = $3::json WHERE collection = $1 AND id = $2
	`, collection, uid, string(body))
	if err != nil {
		return store.UpdateResult{}, apperr.Unknown(err).WithOp("pgstore.UpdateByID")
	}
	if tag.RowsAffected() != 1 {
		return store.UpdateResult{}, apperr.Unacknowledged("update affected no rows").WithOp("pgstore.UpdateByID")
	}
	if err := tx.Commit(ctx); err != nil {
		return store.UpdateResult{}, apperr.Unknown(err).WithOp("pgstore.UpdateByID")
	}

	doc, err := withID(uid, body)
	if err != nil {
		return store.UpdateResult{Matched: true}, nil
	}
	return store.UpdateResult{Matched: true, Document: doc}, nil
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) (int64, error) {
	uid, err := ParseID(id)
	if err != nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM crm_documents WHERE collection = $1 AND id = $2
	`, collection, uid)
	if err != nil {
		return 0, apperr.Unknown(err).WithOp("pgstore.DeleteByID")
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Find(ctx context.Context, collection string, filter query.Filter, opts store.FindOptions) ([]document.Document, error) {
	where, args := BuildWhere(collection, filter)
	sql := "SELECT id, body FROM crm_documents WHERE " + where + " ORDER BY created_at, id"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Unknown(err).WithOp("pgstore.Find")
	}
	defer rows.Close()

	out := make([]document.Document, 0)
	for rows.Next() {
		var (
			uid  uuid.UUID
			body []byte
		)
		if err := rows.Scan(&uid, &body); err != nil {
			return nil, apperr.Unknown(err).WithOp("pgstore.Find")
		}
		doc, err := withID(uid, body)
		if err != nil {
			return nil, apperr.Unknown(err).WithOp("pgstore.Find")
		}
		out = append(out, document.Project(doc, opts.Projection))
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unknown(err).WithOp("pgstore.Find")
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter query.Filter) (int64, error) {
	where, args := BuildWhere(collection, filter)
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM crm_documents WHERE "+where, args...).Scan(&n); err != nil {
		return 0, apperr.Unknown(err).WithOp("pgstore.Count")
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ParseID parses a UUID identifier. The by-id methods treat a string it
// rejects as an id no row can have.
func ParseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperr.InvalidIdentifier(id)
	}
	return uid, nil
}

// matchClause compares only string values: the value at the path itself, or
// the string elements of an array stored there. Objects, numbers and the
// JSON text of arrays never match. Verbs are path, operator, pattern.
const matchClause = `(CASE json_typeof(body #> %[1]s) ` +
	`WHEN 'string' THEN (body #>> %[1]s) %[2]s %[3]s ESCAPE '\' ` +
	`WHEN 'array' THEN EXISTS (SELECT 1 FROM json_array_elements(body #> %[1]s) AS e(v) ` +
	`WHERE json_typeof(e.v) = 'string' AND (e.v #>> '{}') %[2]s %[3]s ESCAPE '\') ` +
	`ELSE false END)`

// BuildWhere renders filter as a SQL condition with positional arguments.
// Each clause LIKE-matches the strings at the path with the pattern's
// wildcards escaped.
func BuildWhere(collection string, filter query.Filter) (string, []any) {
	clauses := []string{"collection = $1"}
	args := []any{collection}
	for _, path := range filter.Paths() {
		m := filter[path]
		op := "LIKE"
		if m.CaseInsensitive {
			op = "ILIKE"
		}
		args = append(args, strings.Split(path, "."), "%"+EscapeLike(m.Pattern)+"%")
		pathArg := fmt.Sprintf("$%d::text[]", len(args)-1)
		patternArg := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(matchClause, pathArg, op, patternArg))
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike makes every character of s match literally in a LIKE pattern.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func withID(id uuid.UUID, body []byte) (document.Document, error) {
	doc, err := document.ParseJSON(body)
	if err != nil {
		return nil, err
	}
	return append(document.Document{{Key: document.IDField, Value: id.String()}}, doc.Without(document.IDField)...), nil
}
