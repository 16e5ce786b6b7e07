package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mashnote/mashnote/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db            *sql.DB
	minConfidence float64
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. A non-positive minConfidence falls back to the default threshold.
func NewSQLite(dsn string, minConfidence float64) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinMatchConfidence
	}
	return &SQLiteStore{db: db, minConfidence: minConfidence}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ingredients (
	id          TEXT PRIMARY KEY,
	client_ref  TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	potential   REAL,
	color       REAL,
	grain_type  TEXT,
	alpha_acid  REAL,
	attenuation REAL,
	notes       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS recipes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	style      TEXT,
	doc        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ingredients_type ON ingredients(type);
CREATE INDEX IF NOT EXISTS idx_ingredients_name ON ingredients(name);
CREATE INDEX IF NOT EXISTS idx_recipes_name ON recipes(name);
CREATE INDEX IF NOT EXISTS idx_recipes_style ON recipes(style);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) MinMatchConfidence() float64 {
	return s.minConfidence
}

// CreateIngredients inserts the batch in one transaction, keyed by each
// draft's client ref: a draft whose ref already landed in an earlier attempt
// yields the existing row instead of a duplicate. The response preserves
// input order.
func (s *SQLiteStore) CreateIngredients(ctx context.Context, drafts []model.IngredientDraft) ([]model.Ingredient, error) {
	if len(drafts) == 0 {
		return []model.Ingredient{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create ingredients")
	}
	defer tx.Rollback()

	out := make([]model.Ingredient, 0, len(drafts))
	for _, d := range drafts {
		clientRef := d.ClientRef
		if clientRef == "" {
			clientRef = uuid.New().String()
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO ingredients (id, client_ref, name, type, potential, color, grain_type, alpha_acid, attenuation, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(client_ref) DO NOTHING`,
			uuid.New().String(), clientRef, d.Name, string(d.Type),
			d.Potential, d.Color, d.GrainType, d.AlphaAcid, d.Attenuation, d.Notes,
			time.Now().UTC(),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert ingredient %s", d.Name)
		}

		row := tx.QueryRowContext(ctx,
			selectIngredientSQL+` WHERE client_ref = ?`, clientRef,
		)
		ing, err := scanIngredient(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *ing)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create ingredients")
	}
	return out, nil
}

func (s *SQLiteStore) GetIngredient(ctx context.Context, id string) (*model.Ingredient, error) {
	row := s.db.QueryRowContext(ctx, selectIngredientSQL+` WHERE id = ?`, id)
	ing, err := scanIngredient(row)
	if eris.Is(err, errIngredientNotFound) {
		return nil, nil
	}
	return ing, err
}

func (s *SQLiteStore) SearchIngredients(ctx context.Context, filter SearchFilter) ([]model.Ingredient, error) {
	query := selectIngredientSQL + ` WHERE 1=1`
	var args []any

	if filter.Query != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY name ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search ingredients")
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, *ing)
	}
	return ingredients, eris.Wrap(rows.Err(), "sqlite: search ingredients iterate")
}

// MatchIngredients loads the candidate rows for every type present in the
// batch with one query, then scores in-process. The response carries one
// result per input, in input order.
func (s *SQLiteStore) MatchIngredients(ctx context.Context, imported []model.NormalizedIngredient) ([]model.MatchResult, error) {
	if len(imported) == 0 {
		return []model.MatchResult{}, nil
	}

	types := distinctTypes(imported)
	placeholders := strings.Repeat("?,", len(types))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(types))
	for i, t := range types {
		args[i] = string(t)
	}

	rows, err := s.db.QueryContext(ctx,
		selectIngredientSQL+fmt.Sprintf(` WHERE type IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load match candidates")
	}
	defer rows.Close()

	byType := make(map[model.IngredientType][]model.Ingredient)
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		byType[ing.Type] = append(byType[ing.Type], *ing)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load match candidates iterate")
	}

	return matchAgainst(imported, byType), nil
}

func (s *SQLiteStore) SaveRecipe(ctx context.Context, recipe model.Recipe) (*model.Recipe, error) {
	if recipe.ID == "" {
		recipe.ID = uuid.New().String()
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}

	doc, err := json.Marshal(recipe)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal recipe")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipes (id, name, style, doc, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, style = excluded.style, doc = excluded.doc`,
		recipe.ID, recipe.Params.Name, recipe.Params.Style, string(doc), recipe.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save recipe %s", recipe.Params.Name)
	}
	return &recipe, nil
}

func (s *SQLiteStore) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM recipes WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get recipe %s", id)
	}

	var r model.Recipe
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal recipe")
	}
	return &r, nil
}

func (s *SQLiteStore) ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, error) {
	query := `SELECT doc FROM recipes WHERE 1=1`
	var args []any

	if filter.Name != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Style != "" {
		query += ` AND style LIKE ?`
		args = append(args, "%"+filter.Style+"%")
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recipes")
	}
	defer rows.Close()

	var recipes []model.Recipe
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recipe")
		}
		var r model.Recipe
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal recipe")
		}
		recipes = append(recipes, r)
	}
	return recipes, eris.Wrap(rows.Err(), "sqlite: list recipes iterate")
}

func (s *SQLiteStore) DeleteRecipe(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete recipe %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("recipe not found: %s", id)
	}
	return nil
}

// helpers

const selectIngredientSQL = `SELECT id, name, type, potential, color, grain_type, alpha_acid, attenuation, notes, created_at FROM ingredients`

var errIngredientNotFound = eris.New("ingredient not found")

type scannable interface {
	Scan(dest ...any) error
}

func scanIngredient(row scannable) (*model.Ingredient, error) {
	var ing model.Ingredient
	var potential, color, alphaAcid, attenuation sql.NullFloat64
	var grainType, notes sql.NullString

	err := row.Scan(&ing.ID, &ing.Name, &ing.Type,
		&potential, &color, &grainType, &alphaAcid, &attenuation, &notes,
		&ing.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errIngredientNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan ingredient")
	}

	if potential.Valid {
		ing.Potential = &potential.Float64
	}
	if color.Valid {
		ing.Color = &color.Float64
	}
	if alphaAcid.Valid {
		ing.AlphaAcid = &alphaAcid.Float64
	}
	if attenuation.Valid {
		ing.Attenuation = &attenuation.Float64
	}
	ing.GrainType = grainType.String
	ing.Notes = notes.String
	return &ing, nil
}

func distinctTypes(imported []model.NormalizedIngredient) []model.IngredientType {
	seen := make(map[model.IngredientType]bool)
	var types []model.IngredientType
	for _, ing := range imported {
		if !seen[ing.Type] {
			seen[ing.Type] = true
			types = append(types, ing.Type)
		}
	}
	return types
}
