package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashnote/mashnote/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, minConfidence: DefaultMinMatchConfidence}
	return s, mock
}

var ingredientColumns = []string{
	"id", "name", "type", "potential", "color", "grain_type",
	"alpha_acid", "attenuation", "notes", "created_at",
}

func TestPostgresStore_GetIngredient_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, type, potential, color, grain_type, alpha_acid, attenuation, notes, created_at FROM ingredients WHERE id = \$1`).
		WithArgs("no-such-id").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetIngredient(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetIngredient(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	alpha := 5.5

	mock.ExpectQuery(`FROM ingredients WHERE id = \$1`).
		WithArgs("h-1").
		WillReturnRows(pgxmock.NewRows(ingredientColumns).
			AddRow("h-1", "Cascade", model.TypeHop, nil, nil, nil, &alpha, nil, nil, time.Now().UTC()))

	got, err := s.GetIngredient(context.Background(), "h-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Cascade", got.Name)
	require.NotNil(t, got.AlphaAcid)
	assert.InDelta(t, 5.5, *got.AlphaAcid, 1e-9)
	assert.Nil(t, got.Potential)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateIngredients_UpsertsInOneTx(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`ON CONFLICT \(client_ref\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "ref-1", "Cascade", "hop",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(ingredientColumns).
			AddRow("h-1", "Cascade", model.TypeHop, nil, nil, nil, nil, nil, nil, now))
	mock.ExpectQuery(`ON CONFLICT \(client_ref\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "ref-2", "US-05", "yeast",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(ingredientColumns).
			AddRow("y-1", "US-05", model.TypeYeast, nil, nil, nil, nil, nil, nil, now))
	mock.ExpectCommit()

	created, err := s.CreateIngredients(context.Background(), []model.IngredientDraft{
		{ClientRef: "ref-1", Name: "Cascade", Type: model.TypeHop},
		{ClientRef: "ref-2", Name: "US-05", Type: model.TypeYeast},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "h-1", created[0].ID)
	assert.Equal(t, "y-1", created[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateIngredients_RollsBackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`ON CONFLICT \(client_ref\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "ref-1", "Cascade", "hop",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrTxClosed)
	mock.ExpectRollback()

	_, err := s.CreateIngredients(context.Background(), []model.IngredientDraft{
		{ClientRef: "ref-1", Name: "Cascade", Type: model.TypeHop},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MatchIngredients(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM ingredients WHERE type = ANY\(\$1\)`).
		WithArgs([]string{"hop"}).
		WillReturnRows(pgxmock.NewRows(ingredientColumns).
			AddRow("h-1", "Cascade", model.TypeHop, nil, nil, nil, nil, nil, nil, now).
			AddRow("h-2", "Centennial", model.TypeHop, nil, nil, nil, nil, nil, nil, now))

	results, err := s.MatchIngredients(context.Background(), []model.NormalizedIngredient{
		{InstanceID: "i1", ID: "r1", Name: "Casscade", Type: model.TypeHop, Amount: 30, Unit: "g"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Best)
	assert.Equal(t, "Cascade", results[0].Best.Ingredient.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecipe_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "Dry Stout", "Irish Stout", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := s.SaveRecipe(context.Background(), model.Recipe{
		Params: model.RecipeParams{Name: "Dry Stout", Style: "Irish Stout"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecipe_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM recipes WHERE id = \$1`).
		WithArgs("no-such-id").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetRecipe(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRecipe_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM recipes WHERE id = \$1`).
		WithArgs("no-such-id").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteRecipe(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
