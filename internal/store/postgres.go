package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mashnote/mashnote/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool          Pool
	closeFn       func()
	minConfidence float64
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgSelectIngredient = `SELECT id, name, type, potential, color, grain_type, alpha_acid, attenuation, notes, created_at FROM ingredients`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_ingredient":    pgSelectIngredient + ` WHERE id = $1`,
	"match_candidates":  pgSelectIngredient + ` WHERE type = ANY($1)`,
	"upsert_ingredient": upsertIngredientSQL,
	"get_recipe":        `SELECT doc FROM recipes WHERE id = $1`,
	"save_recipe":       saveRecipeSQL,
	"delete_recipe":     `DELETE FROM recipes WHERE id = $1`,
}

const upsertIngredientSQL = `INSERT INTO ingredients (id, client_ref, name, type, potential, color, grain_type, alpha_acid, attenuation, notes, created_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
 ON CONFLICT (client_ref) DO UPDATE SET name = EXCLUDED.name
 RETURNING id, name, type, potential, color, grain_type, alpha_acid, attenuation, notes, created_at`

const saveRecipeSQL = `INSERT INTO recipes (id, name, style, doc, created_at) VALUES ($1, $2, $3, $4, $5)
 ON CONFLICT (id) DO UPDATE SET name = $2, style = $3, doc = $4`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, minConfidence float64) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinMatchConfidence
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, minConfidence: minConfidence}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ingredients (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_ref  TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	potential   DOUBLE PRECISION,
	color       DOUBLE PRECISION,
	grain_type  TEXT,
	alpha_acid  DOUBLE PRECISION,
	attenuation DOUBLE PRECISION,
	notes       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS recipes (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	style      TEXT,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ingredients_type ON ingredients(type);
CREATE INDEX IF NOT EXISTS idx_ingredients_name ON ingredients(name);
CREATE INDEX IF NOT EXISTS idx_recipes_name ON recipes(name);
CREATE INDEX IF NOT EXISTS idx_recipes_style ON recipes(style);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) MinMatchConfidence() float64 {
	return s.minConfidence
}

// CreateIngredients upserts the batch in one transaction, keyed by client
// ref, and returns rows in input order. A retried batch resolves to the rows
// the first attempt created.
func (s *PostgresStore) CreateIngredients(ctx context.Context, drafts []model.IngredientDraft) ([]model.Ingredient, error) {
	if len(drafts) == 0 {
		return []model.Ingredient{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin create ingredients")
	}
	defer tx.Rollback(ctx)

	out := make([]model.Ingredient, 0, len(drafts))
	for _, d := range drafts {
		clientRef := d.ClientRef
		if clientRef == "" {
			clientRef = uuid.New().String()
		}

		row := tx.QueryRow(ctx, upsertIngredientSQL,
			uuid.New().String(), clientRef, d.Name, string(d.Type),
			d.Potential, d.Color, d.GrainType, d.AlphaAcid, d.Attenuation, d.Notes,
			time.Now().UTC(),
		)
		ing, err := scanPgIngredient(row)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: upsert ingredient %s", d.Name)
		}
		out = append(out, *ing)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit create ingredients")
	}
	return out, nil
}

func (s *PostgresStore) GetIngredient(ctx context.Context, id string) (*model.Ingredient, error) {
	row := s.pool.QueryRow(ctx, pgSelectIngredient+` WHERE id = $1`, id)
	ing, err := scanPgIngredient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get ingredient %s", id)
	}
	return ing, nil
}

func (s *PostgresStore) SearchIngredients(ctx context.Context, filter SearchFilter) ([]model.Ingredient, error) {
	query := pgSelectIngredient + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Query != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(` AND type = $%d`, argIdx)
		args = append(args, string(filter.Type))
		argIdx++
	}
	query += ` ORDER BY name ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search ingredients")
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		ing, err := scanPgIngredient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingredient")
		}
		ingredients = append(ingredients, *ing)
	}
	return ingredients, eris.Wrap(rows.Err(), "postgres: search ingredients iterate")
}

// MatchIngredients loads candidates for every type in the batch with one
// query and scores in-process, identically to the SQLite backend.
func (s *PostgresStore) MatchIngredients(ctx context.Context, imported []model.NormalizedIngredient) ([]model.MatchResult, error) {
	if len(imported) == 0 {
		return []model.MatchResult{}, nil
	}

	types := distinctTypes(imported)
	typeStrings := make([]string, len(types))
	for i, t := range types {
		typeStrings[i] = string(t)
	}

	rows, err := s.pool.Query(ctx, pgSelectIngredient+` WHERE type = ANY($1)`, typeStrings)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load match candidates")
	}
	defer rows.Close()

	byType := make(map[model.IngredientType][]model.Ingredient)
	for rows.Next() {
		ing, err := scanPgIngredient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan match candidate")
		}
		byType[ing.Type] = append(byType[ing.Type], *ing)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load match candidates iterate")
	}

	return matchAgainst(imported, byType), nil
}

func (s *PostgresStore) SaveRecipe(ctx context.Context, recipe model.Recipe) (*model.Recipe, error) {
	if recipe.ID == "" {
		recipe.ID = uuid.New().String()
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}

	doc, err := json.Marshal(recipe)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal recipe")
	}

	_, err = s.pool.Exec(ctx, saveRecipeSQL,
		recipe.ID, recipe.Params.Name, recipe.Params.Style, doc, recipe.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save recipe %s", recipe.Params.Name)
	}
	return &recipe, nil
}

func (s *PostgresStore) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM recipes WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get recipe %s", id)
	}

	var r model.Recipe
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal recipe")
	}
	return &r, nil
}

func (s *PostgresStore) ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, error) {
	query := `SELECT doc FROM recipes WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Name != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.Name+"%")
		argIdx++
	}
	if filter.Style != "" {
		query += fmt.Sprintf(` AND style ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.Style+"%")
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recipes")
	}
	defer rows.Close()

	var recipes []model.Recipe
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recipe")
		}
		var r model.Recipe
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal recipe")
		}
		recipes = append(recipes, r)
	}
	return recipes, eris.Wrap(rows.Err(), "postgres: list recipes iterate")
}

func (s *PostgresStore) DeleteRecipe(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete recipe %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("recipe not found: %s", id)
	}
	return nil
}

// scanPgIngredient scans one catalog row from a pgx row or rows.
func scanPgIngredient(row pgx.Row) (*model.Ingredient, error) {
	var ing model.Ingredient
	var potential, color, alphaAcid, attenuation *float64
	var grainType, notes *string

	err := row.Scan(&ing.ID, &ing.Name, &ing.Type,
		&potential, &color, &grainType, &alphaAcid, &attenuation, &notes,
		&ing.CreatedAt)
	if err != nil {
		return nil, err
	}

	ing.Potential = potential
	ing.Color = color
	ing.AlphaAcid = alphaAcid
	ing.Attenuation = attenuation
	if grainType != nil {
		ing.GrainType = *grainType
	}
	if notes != nil {
		ing.Notes = *notes
	}
	return &ing, nil
}
