package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pargar-ir/qanun-ingest/internal/config"
	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

// DatabaseClient implements core.Store on Postgres with pgvector.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Pool settings sized for an API service plus pipeline workers.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Masterdata

func (c *DatabaseClient) GetJurisdiction(ctx context.Context, id string) (*models.Jurisdiction, error) {
	const q = `
		SELECT id, name, code, description, is_active, created_at, updated_at
		FROM jurisdictions WHERE id = $1
	`
	var j models.Jurisdiction
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&j.ID, &j.Name, &j.Code, &j.Description, &j.IsActive, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *DatabaseClient) GetAuthority(ctx context.Context, id string) (*models.IssuingAuthority, error) {
	const q = `
		SELECT id, name, code, jurisdiction_id, description, is_active, created_at, updated_at
		FROM issuing_authorities WHERE id = $1
	`
	var a models.IssuingAuthority
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.Name, &a.Code, &a.JurisdictionID, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *DatabaseClient) GetVocabulary(ctx context.Context, id string) (*models.Vocabulary, error) {
	const q = `
		SELECT id, name, code, description, created_at, updated_at
		FROM vocabularies WHERE id = $1
	`
	var v models.Vocabulary
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&v.ID, &v.Name, &v.Code, &v.Description, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	const qt = `
		SELECT id, vocabulary_id, term, code, description, is_active, created_at, updated_at
		FROM vocabulary_terms WHERE vocabulary_id = $1 ORDER BY term
	`
	rows, err := c.db.QueryContext(ctx, qt, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t models.VocabularyTerm
		if err := rows.Scan(&t.ID, &t.VocabularyID, &t.Term, &t.Code, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		v.Terms = append(v.Terms, t)
	}
	return &v, rows.Err()
}

// FRBR entities

func (c *DatabaseClient) CreateWork(ctx context.Context, w *models.InstrumentWork) error {
	if w == nil {
		return errors.New("nil work")
	}
	const q = `
		INSERT INTO instrument_works
			(id, title_official, doc_type, jurisdiction_id, authority_id,
			 eli_uri_work, urn_lex, local_slug, subject_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.ExecContext(ctx, q,
		w.ID, w.TitleOfficial, w.DocType, w.JurisdictionID, w.AuthorityID,
		w.ELIURIWork, w.URNLex, w.LocalSlug, w.SubjectSummary)
	return err
}

func (c *DatabaseClient) GetWork(ctx context.Context, id string) (*models.InstrumentWork, error) {
	const q = `
		SELECT id, title_official, doc_type, jurisdiction_id, authority_id,
		       eli_uri_work, urn_lex, local_slug, subject_summary, created_at, updated_at
		FROM instrument_works WHERE id = $1
	`
	var w models.InstrumentWork
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&w.ID, &w.TitleOfficial, &w.DocType, &w.JurisdictionID, &w.AuthorityID,
		&w.ELIURIWork, &w.URNLex, &w.LocalSlug, &w.SubjectSummary, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *DatabaseClient) CreateExpression(ctx context.Context, e *models.InstrumentExpression) error {
	if e == nil {
		return errors.New("nil expression")
	}
	const q = `
		INSERT INTO instrument_expressions
			(id, work_id, language, consolidation_level, expression_date, eli_uri_expr)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := c.db.ExecContext(ctx, q,
		e.ID, e.WorkID, e.Language, e.ConsolidationLevel, e.ExpressionDate, e.ELIURIExpr)
	return err
}

func (c *DatabaseClient) GetExpression(ctx context.Context, id string) (*models.InstrumentExpression, error) {
	const q = `
		SELECT id, work_id, language, consolidation_level, expression_date, eli_uri_expr, created_at, updated_at
		FROM instrument_expressions WHERE id = $1
	`
	var e models.InstrumentExpression
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.WorkID, &e.Language, &e.ConsolidationLevel, &e.ExpressionDate, &e.ELIURIExpr, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *DatabaseClient) ListExpressionIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id FROM instrument_expressions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CreateManifestation(ctx context.Context, m *models.InstrumentManifestation) error {
	if m == nil {
		return errors.New("nil manifestation")
	}
	const q = `
		INSERT INTO instrument_manifestations
			(id, expr_id, publication_date, official_gazette_name, gazette_issue_no,
			 source_url, checksum_sha256, in_force_from, in_force_to, repeal_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := c.db.ExecContext(ctx, q,
		m.ID, m.ExprID, m.PublicationDate, m.OfficialGazetteName, m.GazetteIssueNo,
		m.SourceURL, m.ChecksumSHA256, m.InForceFrom, m.InForceTo, m.RepealStatus)
	return err
}

func (c *DatabaseClient) GetManifestation(ctx context.Context, id string) (*models.InstrumentManifestation, error) {
	const q = `
		SELECT id, expr_id, publication_date, official_gazette_name, gazette_issue_no,
		       source_url, checksum_sha256, in_force_from, in_force_to, repeal_status,
		       created_at, updated_at
		FROM instrument_manifestations WHERE id = $1
	`
	var m models.InstrumentManifestation
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&m.ID, &m.ExprID, &m.PublicationDate, &m.OfficialGazetteName, &m.GazetteIssueNo,
		&m.SourceURL, &m.ChecksumSHA256, &m.InForceFrom, &m.InForceTo, &m.RepealStatus,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Legal units

const unitColumns = `
	id, COALESCE(work_id::text, ''), COALESCE(expr_id::text, ''),
	COALESCE(manifestation_id::text, ''), COALESCE(parent_id::text, ''),
	unit_type, label, number, order_index, path_label, content,
	eli_fragment, xml_id, created_at, updated_at
`

func scanUnit(row interface{ Scan(...any) error }) (*models.LegalUnit, error) {
	var u models.LegalUnit
	err := row.Scan(
		&u.ID, &u.WorkID, &u.ExprID, &u.ManifestationID, &u.ParentID,
		&u.UnitType, &u.Label, &u.Number, &u.OrderIndex, &u.PathLabel, &u.Content,
		&u.ELIFragment, &u.XMLID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) CreateUnit(ctx context.Context, u *models.LegalUnit) error {
	if u == nil {
		return errors.New("nil unit")
	}
	const q = `
		INSERT INTO legal_units
			(id, work_id, expr_id, manifestation_id, parent_id, unit_type, label,
			 number, order_index, path_label, content, eli_fragment, xml_id)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid,
		        NULLIF($5, '')::uuid, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := c.db.ExecContext(ctx, q,
		u.ID, u.WorkID, u.ExprID, u.ManifestationID, u.ParentID, u.UnitType, u.Label,
		u.Number, u.OrderIndex, u.PathLabel, u.Content, u.ELIFragment, u.XMLID)
	return err
}

func (c *DatabaseClient) UpdateUnit(ctx context.Context, u *models.LegalUnit) error {
	if u == nil {
		return errors.New("nil unit")
	}
	const q = `
		UPDATE legal_units SET
			work_id = NULLIF($2, '')::uuid,
			expr_id = NULLIF($3, '')::uuid,
			manifestation_id = NULLIF($4, '')::uuid,
			parent_id = NULLIF($5, '')::uuid,
			unit_type = $6, label = $7, number = $8, order_index = $9,
			path_label = $10, content = $11, eli_fragment = $12, xml_id = $13,
			updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		u.ID, u.WorkID, u.ExprID, u.ManifestationID, u.ParentID,
		u.UnitType, u.Label, u.Number, u.OrderIndex,
		u.PathLabel, u.Content, u.ELIFragment, u.XMLID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (c *DatabaseClient) GetUnit(ctx context.Context, id string) (*models.LegalUnit, error) {
	q := `SELECT ` + unitColumns + ` FROM legal_units WHERE id = $1`
	u, err := scanUnit(c.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return u, err
}

func (c *DatabaseClient) DeleteUnit(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM legal_units WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListUnitsByExpression returns the expression's units in tree order: parents
// before children, siblings by order_index. The recursive CTE materializes a
// sort path of order indexes down each branch.
func (c *DatabaseClient) ListUnitsByExpression(ctx context.Context, exprID string) ([]models.LegalUnit, error) {
	q := `
		WITH RECURSIVE tree AS (
			SELECT u.*, ARRAY[u.order_index] AS sort_path
			FROM legal_units u
			WHERE u.expr_id = $1 AND u.parent_id IS NULL
			UNION ALL
			SELECT ch.*, t.sort_path || ch.order_index
			FROM legal_units ch
			JOIN tree t ON ch.parent_id = t.id
		)
		SELECT ` + unitColumns + ` FROM tree ORDER BY sort_path
	`
	rows, err := c.db.QueryContext(ctx, q, exprID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LegalUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountUnitsByExpression(ctx context.Context, exprID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM legal_units WHERE expr_id = $1`, exprID).Scan(&n)
	return n, err
}

func (c *DatabaseClient) CountChunksByUnit(ctx context.Context, unitID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM chunks WHERE unit_id = $1`, unitID).Scan(&n)
	return n, err
}

var _ core.Store = (*DatabaseClient)(nil)
