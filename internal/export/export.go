// Package export renders recipes from the library into shareable files:
// YAML for tooling and version control, XLSX for brew-day spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/mashnote/mashnote/internal/model"
)

// recipeDoc is the YAML shape of one exported recipe. It flattens the
// persisted document down to what a brewer edits by hand.
type recipeDoc struct {
	Name        string          `yaml:"name"`
	Style       string          `yaml:"style,omitempty"`
	BatchSize   string          `yaml:"batch_size"`
	BoilTime    float64         `yaml:"boil_time_min,omitempty"`
	Efficiency  float64         `yaml:"efficiency_pct,omitempty"`
	MashTemp    string          `yaml:"mash_temp,omitempty"`
	Metrics     *metricsDoc     `yaml:"metrics,omitempty"`
	Ingredients []ingredientDoc `yaml:"ingredients"`
	Notes       string          `yaml:"notes,omitempty"`
}

type metricsDoc struct {
	OG  float64 `yaml:"og"`
	FG  float64 `yaml:"fg"`
	ABV float64 `yaml:"abv"`
	IBU float64 `yaml:"ibu"`
	SRM float64 `yaml:"srm"`
}

type ingredientDoc struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Amount float64  `yaml:"amount"`
	Unit   string   `yaml:"unit"`
	Use    string   `yaml:"use,omitempty"`
	Time   *float64 `yaml:"time_min,omitempty"`
}

func toDoc(r model.Recipe) recipeDoc {
	doc := recipeDoc{
		Name:       r.Params.Name,
		Style:      r.Params.Style,
		BatchSize:  fmt.Sprintf("%g %s", r.Params.BatchSize, r.Params.BatchSizeUnit),
		BoilTime:   r.Params.BoilTime,
		Efficiency: r.Params.Efficiency,
		Notes:      r.Params.Notes,
	}
	if r.Params.MashTemp > 0 {
		doc.MashTemp = fmt.Sprintf("%g %s", r.Params.MashTemp, r.Params.MashTempUnit)
	}
	if r.Metrics != nil {
		doc.Metrics = &metricsDoc{
			OG: r.Metrics.OG, FG: r.Metrics.FG, ABV: r.Metrics.ABV,
			IBU: r.Metrics.IBU, SRM: r.Metrics.SRM,
		}
	}
	for _, ing := range r.Ingredients {
		doc.Ingredients = append(doc.Ingredients, ingredientDoc{
			Name:   ing.Name,
			Type:   string(ing.Type),
			Amount: ing.Amount,
			Unit:   ing.Unit,
			Use:    ing.Use,
			Time:   ing.Time,
		})
	}
	return doc
}

// WriteYAML renders the recipes as a YAML document stream, one document per
// recipe.
func WriteYAML(w io.Writer, recipes []model.Recipe) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	for _, r := range recipes {
		if err := enc.Encode(toDoc(r)); err != nil {
			return eris.Wrapf(err, "export: encode recipe %s", r.Params.Name)
		}
	}
	return nil
}

var xlsxHeaders = struct {
	recipes     []string
	ingredients []string
}{
	recipes:     []string{"Name", "Style", "Batch Size", "Boil Time (min)", "Efficiency (%)", "OG", "FG", "ABV", "IBU", "SRM"},
	ingredients: []string{"Recipe", "Ingredient", "Type", "Amount", "Unit", "Use", "Time (min)"},
}

// WriteXLSX renders the recipes as a two-sheet workbook: a recipe summary
// with metrics, and the flattened ingredient lines.
func WriteXLSX(w io.Writer, recipes []model.Recipe) error {
	f := xlsx.NewFile()

	recipeSheet, err := f.AddSheet("Recipes")
	if err != nil {
		return eris.Wrap(err, "export: add recipes sheet")
	}
	ingredientSheet, err := f.AddSheet("Ingredients")
	if err != nil {
		return eris.Wrap(err, "export: add ingredients sheet")
	}

	addHeaderRow(recipeSheet, xlsxHeaders.recipes)
	addHeaderRow(ingredientSheet, xlsxHeaders.ingredients)

	for _, r := range recipes {
		row := recipeSheet.AddRow()
		row.AddCell().SetString(r.Params.Name)
		row.AddCell().SetString(r.Params.Style)
		row.AddCell().SetString(fmt.Sprintf("%g %s", r.Params.BatchSize, r.Params.BatchSizeUnit))
		row.AddCell().SetFloat(r.Params.BoilTime)
		row.AddCell().SetFloat(r.Params.Efficiency)
		if r.Metrics != nil {
			row.AddCell().SetFloatWithFormat(r.Metrics.OG, "0.000")
			row.AddCell().SetFloatWithFormat(r.Metrics.FG, "0.000")
			row.AddCell().SetFloatWithFormat(r.Metrics.ABV, "0.0")
			row.AddCell().SetFloatWithFormat(r.Metrics.IBU, "0")
			row.AddCell().SetFloatWithFormat(r.Metrics.SRM, "0.0")
		}

		for _, ing := range r.Ingredients {
			ingRow := ingredientSheet.AddRow()
			ingRow.AddCell().SetString(r.Params.Name)
			ingRow.AddCell().SetString(ing.Name)
			ingRow.AddCell().SetString(string(ing.Type))
			ingRow.AddCell().SetFloat(ing.Amount)
			ingRow.AddCell().SetString(ing.Unit)
			ingRow.AddCell().SetString(ing.Use)
			if ing.Time != nil {
				ingRow.AddCell().SetFloat(*ing.Time)
			}
		}
	}

	return eris.Wrap(f.Write(w), "export: write workbook")
}

func addHeaderRow(sheet *xlsx.Sheet, headers []string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetString(h)
	}
}
