package beerxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashnote/mashnote/internal/model"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<RECIPES>
  <RECIPE>
    <NAME>Dry Stout</NAME>
    <STYLE><NAME>Irish Stout</NAME></STYLE>
    <BATCH_SIZE>18.93</BATCH_SIZE>
    <DISPLAY_BATCH_SIZE>5.00 gal</DISPLAY_BATCH_SIZE>
    <BOIL_TIME>60</BOIL_TIME>
    <EFFICIENCY>72.0</EFFICIENCY>
    <FERMENTABLES>
      <FERMENTABLE>
        <NAME>Pale Malt (2 Row) UK</NAME>
        <TYPE>Grain</TYPE>
        <AMOUNT>2.27</AMOUNT>
        <YIELD>78.0</YIELD>
        <COLOR>3.0</COLOR>
        <ORIGIN>United Kingdom</ORIGIN>
      </FERMENTABLE>
      <FERMENTABLE>
        <NAME>Roasted Barley</NAME>
        <TYPE>Grain</TYPE>
        <AMOUNT>0.45</AMOUNT>
        <YIELD>55.0</YIELD>
        <COLOR>500.0</COLOR>
      </FERMENTABLE>
    </FERMENTABLES>
    <HOPS>
      <HOP>
        <NAME>East Kent Goldings</NAME>
        <AMOUNT>0.0425</AMOUNT>
        <ALPHA>5.0</ALPHA>
        <USE>Boil</USE>
        <TIME>60</TIME>
      </HOP>
    </HOPS>
    <YEASTS>
      <YEAST>
        <NAME>Irish Ale</NAME>
        <ATTENUATION>71.0</ATTENUATION>
        <LABORATORY>Wyeast</LABORATORY>
      </YEAST>
    </YEASTS>
    <MASH>
      <MASH_STEPS>
        <MASH_STEP><STEP_TEMP>68.0</STEP_TEMP></MASH_STEP>
      </MASH_STEPS>
    </MASH>
  </RECIPE>
</RECIPES>`

func TestParse_Sample(t *testing.T) {
	recipes, err := Parse(strings.NewReader(sampleXML))
	require.NoError(t, err)
	require.Len(t, recipes, 1)

	r := recipes[0]
	assert.Equal(t, "Dry Stout", r.Name)
	assert.Equal(t, "Irish Stout", r.Style)
	assert.Equal(t, "18.93", r.BatchSize)
	assert.Equal(t, "l", r.BatchSizeUnit)
	assert.Equal(t, "imperial", r.UnitSystem) // from the display batch size
	assert.Equal(t, "60", r.BoilTime)
	assert.Equal(t, "68.0", r.MashTemp)
	assert.Equal(t, "C", r.MashTempUnit)

	require.Len(t, r.Ingredients, 4)

	pale := r.Ingredients[0]
	assert.Equal(t, "Pale Malt (2 Row) UK", pale.Name)
	assert.Equal(t, string(model.TypeGrain), pale.Type)
	assert.Equal(t, "2.27", pale.Amount)
	assert.Equal(t, "kg", pale.Unit)
	assert.NotEmpty(t, pale.ID)
	assert.InDelta(t, 1.0360, pale.Potential.(float64), 0.001)
	assert.Equal(t, "United Kingdom", pale.Origin)

	hop := r.Ingredients[2]
	assert.Equal(t, "East Kent Goldings", hop.Name)
	assert.Equal(t, string(model.TypeHop), hop.Type)
	assert.InDelta(t, 42.5, hop.Amount.(float64), 1e-9) // kg rescaled to g
	assert.Equal(t, "g", hop.Unit)
	assert.Equal(t, "boil", hop.Use)
	assert.Equal(t, "60", hop.Time)

	yeast := r.Ingredients[3]
	assert.Equal(t, string(model.TypeYeast), yeast.Type)
	assert.Equal(t, "71.0", yeast.Attenuation)
}

func TestParse_BareRecipeRoot(t *testing.T) {
	xml := `<RECIPE><NAME>Smash</NAME><BATCH_SIZE>20</BATCH_SIZE></RECIPE>`
	recipes, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Smash", recipes[0].Name)
	assert.Empty(t, recipes[0].UnitSystem)
}

func TestParse_ValidXMLWithoutRecipes(t *testing.T) {
	recipes, err := Parse(strings.NewReader(`<EQUIPMENT><NAME>Kettle</NAME></EQUIPMENT>`))
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse(strings.NewReader("definitely not a recipe file"))
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParse_TruncatedXML(t *testing.T) {
	_, err := Parse(strings.NewReader(`<RECIPES><RECIPE><NAME>Broken`))
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParse_UnparseableNumbersPassThrough(t *testing.T) {
	xml := `<RECIPES><RECIPE><NAME>Odd</NAME>
	  <HOPS><HOP><NAME>Mystery</NAME><AMOUNT>a pinch</AMOUNT><USE>Boil</USE></HOP></HOPS>
	</RECIPE></RECIPES>`

	recipes, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	require.Len(t, recipes[0].Ingredients, 1)
	// Kept verbatim for the validator to reject with a logged reason.
	assert.Equal(t, "a pinch", recipes[0].Ingredients[0].Amount)
}
