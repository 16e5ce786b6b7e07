package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/store"
)

const testBeerXML = `<?xml version="1.0" encoding="UTF-8"?>
<RECIPES>
  <RECIPE>
    <NAME>Test Pale Ale</NAME>
    <STYLE><NAME>American Pale Ale</NAME></STYLE>
    <BATCH_SIZE>19.0</BATCH_SIZE>
    <BOIL_TIME>60</BOIL_TIME>
    <EFFICIENCY>72</EFFICIENCY>
    <FERMENTABLES>
      <FERMENTABLE>
        <NAME>Pale Malt (2 Row)</NAME>
        <TYPE>Grain</TYPE>
        <AMOUNT>4.5</AMOUNT>
        <YIELD>80</YIELD>
        <COLOR>2</COLOR>
      </FERMENTABLE>
    </FERMENTABLES>
    <HOPS>
      <HOP>
        <NAME>Cascade</NAME>
        <AMOUNT>0.028</AMOUNT>
        <ALPHA>5.5</ALPHA>
        <USE>Boil</USE>
        <TIME>60</TIME>
      </HOP>
    </HOPS>
    <YEASTS>
      <YEAST>
        <NAME>Safale US-05</NAME>
        <ATTENUATION>75</ATTENUATION>
      </YEAST>
    </YEASTS>
    <MASH>
      <MASH_STEPS>
        <MASH_STEP><STEP_TEMP>67</STEP_TEMP></MASH_STEP>
      </MASH_STEPS>
    </MASH>
  </RECIPE>
</RECIPES>`

func newTestImportStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "import.db"), store.DefaultMinMatchConfidence)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipe.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportFile_AutoAccept(t *testing.T) {
	st := newTestImportStore(t)
	var out bytes.Buffer

	imp := &fileImporter{
		store:      st,
		service:    st,
		out:        &out,
		autoAccept: true,
	}
	require.NoError(t, imp.importFile(context.Background(), writeTestFile(t, testBeerXML)))

	recipes, err := st.ListRecipes(context.Background(), store.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Test Pale Ale", recipes[0].Params.Name)
	assert.Len(t, recipes[0].Ingredients, 3)
	require.NotNil(t, recipes[0].Metrics)
	assert.Greater(t, recipes[0].Metrics.OG, 1.0)
	assert.Greater(t, recipes[0].Metrics.IBU, 0.0)

	// Every imported ingredient was new, so the catalog grew by three.
	catalogRows, err := st.SearchIngredients(context.Background(), store.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, catalogRows, 3)

	assert.Contains(t, out.String(), "imported \"Test Pale Ale\"")
	assert.Contains(t, out.String(), "OG ")
}

func TestImportFile_ReusesCatalog(t *testing.T) {
	st := newTestImportStore(t)
	alpha := 5.5
	seeded, err := st.CreateIngredients(context.Background(), []model.IngredientDraft{
		{ClientRef: "seed-hop", Name: "Cascade", Type: model.TypeHop, AlphaAcid: &alpha},
	})
	require.NoError(t, err)

	imp := &fileImporter{
		store:      st,
		service:    st,
		out:        &bytes.Buffer{},
		autoAccept: true,
	}
	require.NoError(t, imp.importFile(context.Background(), writeTestFile(t, testBeerXML)))

	recipes, err := st.ListRecipes(context.Background(), store.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, recipes, 1)

	// The imported Cascade resolved to the seeded catalog row.
	var hopID string
	for _, ing := range recipes[0].Ingredients {
		if ing.Type == model.TypeHop {
			hopID = ing.ID
		}
	}
	assert.Equal(t, seeded[0].ID, hopID)
}

func TestImportRecipe_Declined(t *testing.T) {
	st := newTestImportStore(t)

	imp := &fileImporter{
		store:      st,
		service:    st,
		out:        &bytes.Buffer{},
		in:         strings.NewReader("n\n"),
		autoAccept: false,
	}
	require.NoError(t, imp.importFile(context.Background(), writeTestFile(t, testBeerXML)))

	recipes, err := st.ListRecipes(context.Background(), store.RecipeFilter{})
	require.NoError(t, err)
	assert.Empty(t, recipes, "declined imports persist nothing")
}

func TestImportFile_UnitSystemOverride(t *testing.T) {
	st := newTestImportStore(t)

	imp := &fileImporter{
		store:      st,
		service:    st,
		out:        &bytes.Buffer{},
		autoAccept: true,
		unitSystem: "imperial",
	}
	require.NoError(t, imp.importFile(context.Background(), writeTestFile(t, testBeerXML)))

	recipes, err := st.ListRecipes(context.Background(), store.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, model.UnitSystemImperial, recipes[0].Params.UnitSystem)
	assert.Equal(t, "gal", recipes[0].Params.BatchSizeUnit)
}

func TestImportFile_ParseFailure(t *testing.T) {
	st := newTestImportStore(t)

	imp := &fileImporter{store: st, service: st, out: &bytes.Buffer{}, autoAccept: true}
	err := imp.importFile(context.Background(), writeTestFile(t, "garbage"))
	require.Error(t, err)
}

func TestImportFile_MissingFile(t *testing.T) {
	st := newTestImportStore(t)

	imp := &fileImporter{store: st, service: st, out: &bytes.Buffer{}, autoAccept: true}
	err := imp.importFile(context.Background(), filepath.Join(t.TempDir(), "nope.xml"))
	require.Error(t, err)
}
