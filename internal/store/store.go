// Package store implements the persistence layer for the recipe library:
// the ingredient catalog with similarity matching, and committed recipes.
// Two backends exist, SQLite for single-user local use and Postgres for the
// shared serve mode.
package store

import (
	"context"

	"github.com/mashnote/mashnote/internal/model"
)

// DefaultMinMatchConfidence is the match threshold used when the config does
// not override it.
const DefaultMinMatchConfidence = 0.85

// SearchFilter specifies criteria for listing catalog ingredients.
type SearchFilter struct {
	Query  string               `json:"query,omitempty"`
	Type   model.IngredientType `json:"type,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// RecipeFilter specifies criteria for listing recipes.
type RecipeFilter struct {
	Name   string `json:"name,omitempty"`
	Style  string `json:"style,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// IngredientStore is the persisted ingredient catalog. MatchIngredients and
// CreateIngredients satisfy the import pipeline's Matcher and Creator
// collaborators; CreateIngredients upserts on each draft's client ref so a
// retried batch never duplicates rows.
type IngredientStore interface {
	SearchIngredients(ctx context.Context, filter SearchFilter) ([]model.Ingredient, error)
	GetIngredient(ctx context.Context, id string) (*model.Ingredient, error)
	MatchIngredients(ctx context.Context, imported []model.NormalizedIngredient) ([]model.MatchResult, error)
	MinMatchConfidence() float64
	CreateIngredients(ctx context.Context, drafts []model.IngredientDraft) ([]model.Ingredient, error)
}

// RecipeStore persists committed import sessions.
type RecipeStore interface {
	SaveRecipe(ctx context.Context, recipe model.Recipe) (*model.Recipe, error)
	GetRecipe(ctx context.Context, id string) (*model.Recipe, error)
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
}

// Store defines the full persistence interface for the recipe library.
type Store interface {
	IngredientStore
	RecipeStore

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
