package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// pgRepo stores each document as a jsonb tree plus denormalized columns for
// the cross-document queries, and maintains the answer_link index on every
// save.
type pgRepo struct {
	pool *pgxpool.Pool
}

func NewPGRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

func (r *pgRepo) Load(ctx context.Context, path string) (*Document, error) {
	var (
		version int64
		tree    []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT version, tree FROM document WHERE path = $1`, path).Scan(&version, &tree)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	root, err := doctree.UnmarshalTree(tree)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	return &Document{Path: path, Version: version, Root: root}, nil
}

func (r *pgRepo) Save(ctx context.Context, doc *Document, expected int64) error {
	tree, err := doctree.MarshalTree(doc.Root)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.Path, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	next := expected + 1
	kind := doc.Root.StringProperty(forms.PropPrimaryType)
	subject := doc.Root.StringProperty(forms.PropSubject)
	questionnaire := doc.Root.StringProperty(forms.PropQuestionnaire)
	parent := doc.Root.StringProperty(forms.PropParent)

	if expected == 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO document (path, kind, subject_path, questionnaire_path, parent_path, version, tree)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (path) DO NOTHING`,
			doc.Path, kind, nullable(subject), nullable(questionnaire), nullable(parent), next, tree)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		var exists int64
		if err := tx.QueryRow(ctx,
			`SELECT version FROM document WHERE path = $1`, doc.Path).Scan(&exists); err != nil {
			return fmt.Errorf("verify insert: %w", err)
		}
		if exists != next {
			return ErrVersionConflict
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE document
			SET kind=$2, subject_path=$3, questionnaire_path=$4, parent_path=$5,
			    version=$6, tree=$7, updated_at=now()
			WHERE path=$1 AND version=$8`,
			doc.Path, kind, nullable(subject), nullable(questionnaire), nullable(parent), next, tree, expected)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM answer_link WHERE form_path = $1`, doc.Path); err != nil {
		return fmt.Errorf("clear answer links: %w", err)
	}
	for _, l := range answerLinks(doc.Path, doc.Root) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO answer_link (form_path, answer_path, source_path, kind)
			VALUES ($1,$2,$3,$4)`,
			l.formPath, l.answerPath, l.sourcePath, l.kind); err != nil {
			return fmt.Errorf("index answer link: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	doc.Version = next
	return nil
}

func (r *pgRepo) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT path FROM document WHERE path LIKE $1 || '%' ORDER BY path`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return scanPaths(rows)
}

func (r *pgRepo) FormsBySubject(ctx context.Context, subjectPath string) (map[string]*doctree.NodeState, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT path, tree FROM document WHERE kind = $1 AND subject_path = $2 ORDER BY path`,
		forms.TypeForm, subjectPath)
	if err != nil {
		return nil, fmt.Errorf("forms by subject: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*doctree.NodeState)
	for rows.Next() {
		var (
			path string
			tree []byte
		)
		if err := rows.Scan(&path, &tree); err != nil {
			return nil, err
		}
		root, err := doctree.UnmarshalTree(tree)
		if err != nil {
			return nil, fmt.Errorf("decode form %s: %w", path, err)
		}
		out[path] = root
	}
	return out, rows.Err()
}

func (r *pgRepo) SubjectChildren(ctx context.Context, subjectPath string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT path FROM document WHERE kind = $1 AND parent_path = $2 ORDER BY path`,
		forms.TypeSubject, subjectPath)
	if err != nil {
		return nil, fmt.Errorf("subject children: %w", err)
	}
	defer rows.Close()
	return scanPaths(rows)
}

func (r *pgRepo) FormsComputedFrom(ctx context.Context, answerPath string) ([]string, error) {
	return r.formsLinkedFrom(ctx, answerPath, linkComputed)
}

func (r *pgRepo) FormsCopiedFrom(ctx context.Context, answerPath string) ([]string, error) {
	return r.formsLinkedFrom(ctx, answerPath, linkCopied)
}

func (r *pgRepo) formsLinkedFrom(ctx context.Context, answerPath, kind string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT form_path FROM answer_link
		WHERE source_path = $1 AND kind = $2 ORDER BY form_path`, answerPath, kind)
	if err != nil {
		return nil, fmt.Errorf("forms linked from: %w", err)
	}
	defer rows.Close()
	return scanPaths(rows)
}

func scanPaths(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
