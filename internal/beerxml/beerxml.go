// Package beerxml reads BeerXML 1.0 recipe files into untrusted raw recipe
// records. The parser is deliberately lenient: BeerXML in the wild is full of
// missing tags, odd charsets, and numbers-as-strings, so every field is
// passed through as-is and left for the import pipeline to validate.
package beerxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/mashnote/mashnote/internal/model"
)

// ParseError reports input that could not be interpreted as BeerXML at all.
// A syntactically valid document that simply contains no recipes is not a
// ParseError; it yields an empty slice.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("beerxml: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type xmlStyle struct {
	Name string `xml:"NAME"`
}

type xmlFermentable struct {
	Name   string `xml:"NAME"`
	Type   string `xml:"TYPE"`
	Amount string `xml:"AMOUNT"` // kg per the BeerXML standard
	Yield  string `xml:"YIELD"`  // percent
	Color  string `xml:"COLOR"`  // lovibond
	Origin string `xml:"ORIGIN"`
}

type xmlHop struct {
	Name   string `xml:"NAME"`
	Amount string `xml:"AMOUNT"` // kg per the standard
	Alpha  string `xml:"ALPHA"`  // percent
	Use    string `xml:"USE"`
	Time   string `xml:"TIME"` // minutes
	Origin string `xml:"ORIGIN"`
}

type xmlYeast struct {
	Name        string `xml:"NAME"`
	Attenuation string `xml:"ATTENUATION"` // percent
	Laboratory  string `xml:"LABORATORY"`
}

type xmlMisc struct {
	Name   string `xml:"NAME"`
	Amount string `xml:"AMOUNT"`
	Use    string `xml:"USE"`
	Time   string `xml:"TIME"`
}

type xmlMashStep struct {
	StepTemp string `xml:"STEP_TEMP"` // celsius per the standard
}

type xmlMash struct {
	Steps []xmlMashStep `xml:"MASH_STEPS>MASH_STEP"`
}

type xmlRecipe struct {
	Name             string           `xml:"NAME"`
	Style            xmlStyle         `xml:"STYLE"`
	BatchSize        string           `xml:"BATCH_SIZE"` // liters per the standard
	DisplayBatchSize string           `xml:"DISPLAY_BATCH_SIZE"`
	BoilTime         string           `xml:"BOIL_TIME"`
	Efficiency       string           `xml:"EFFICIENCY"`
	Notes            string           `xml:"NOTES"`
	Fermentables     []xmlFermentable `xml:"FERMENTABLES>FERMENTABLE"`
	Hops             []xmlHop         `xml:"HOPS>HOP"`
	Yeasts           []xmlYeast       `xml:"YEASTS>YEAST"`
	Miscs            []xmlMisc        `xml:"MISCS>MISC"`
	Mash             xmlMash          `xml:"MASH"`
}

// Parse reads BeerXML from r and returns one RawRecipe per RECIPE element.
// It accepts both a RECIPES wrapper and a bare RECIPE root, tolerates
// non-UTF-8 charsets via the declared encoding, and skips everything it does
// not recognize.
func Parse(r io.Reader) ([]model.RawRecipe, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "beerxml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var recipes []model.RawRecipe
	sawElement := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true

		if !strings.EqualFold(se.Name.Local, "RECIPE") {
			continue
		}

		var rec xmlRecipe
		if err := dec.DecodeElement(&rec, &se); err != nil {
			return nil, &ParseError{Err: err}
		}
		recipes = append(recipes, toRawRecipe(rec))
	}

	if !sawElement {
		return nil, &ParseError{Err: eris.New("no XML content")}
	}
	return recipes, nil
}

// toRawRecipe maps a decoded RECIPE element onto the untrusted import record.
// Amount units follow homebrew convention: fermentables stay in kg, hop
// amounts become grams, because nobody weighs hops in thousandths of a
// kilogram.
func toRawRecipe(rec xmlRecipe) model.RawRecipe {
	raw := model.RawRecipe{
		Name:          rec.Name,
		Style:         rec.Style.Name,
		BatchSize:     strings.TrimSpace(rec.BatchSize),
		BatchSizeUnit: "l",
		BoilTime:      strings.TrimSpace(rec.BoilTime),
		Efficiency:    strings.TrimSpace(rec.Efficiency),
		MashTempUnit:  "C",
		UnitSystem:    unitSystemHint(rec.DisplayBatchSize),
		Notes:         rec.Notes,
	}

	if len(rec.Mash.Steps) > 0 {
		raw.MashTemp = strings.TrimSpace(rec.Mash.Steps[0].StepTemp)
	}

	for _, f := range rec.Fermentables {
		raw.Ingredients = append(raw.Ingredients, model.RawIngredient{
			ID:        uuid.New().String(),
			Name:      f.Name,
			Type:      string(model.TypeGrain),
			Amount:    strings.TrimSpace(f.Amount),
			Unit:      "kg",
			Potential: yieldToPotential(f.Yield),
			Color:     strings.TrimSpace(f.Color),
			GrainType: f.Type,
			Origin:    f.Origin,
		})
	}

	for _, h := range rec.Hops {
		raw.Ingredients = append(raw.Ingredients, model.RawIngredient{
			ID:        uuid.New().String(),
			Name:      h.Name,
			Type:      string(model.TypeHop),
			Amount:    kgToGrams(h.Amount),
			Unit:      "g",
			Use:       strings.ToLower(h.Use),
			Time:      strings.TrimSpace(h.Time),
			AlphaAcid: strings.TrimSpace(h.Alpha),
			Origin:    h.Origin,
		})
	}

	for _, y := range rec.Yeasts {
		raw.Ingredients = append(raw.Ingredients, model.RawIngredient{
			ID:          uuid.New().String(),
			Name:        y.Name,
			Type:        string(model.TypeYeast),
			Amount:      "1",
			Unit:        "pkg",
			Attenuation: strings.TrimSpace(y.Attenuation),
			Origin:      y.Laboratory,
		})
	}

	for _, m := range rec.Miscs {
		raw.Ingredients = append(raw.Ingredients, model.RawIngredient{
			ID:     uuid.New().String(),
			Name:   m.Name,
			Type:   string(model.TypeOther),
			Amount: strings.TrimSpace(m.Amount),
			Unit:   "g",
			Use:    strings.ToLower(m.Use),
			Time:   strings.TrimSpace(m.Time),
		})
	}

	return raw
}

// unitSystemHint infers the brewer's preferred system from the display batch
// size suffix ("5.00 gal"). Empty means no hint.
func unitSystemHint(display string) string {
	d := strings.ToLower(strings.TrimSpace(display))
	switch {
	case strings.HasSuffix(d, "gal"), strings.HasSuffix(d, "gallons"):
		return string(model.UnitSystemImperial)
	case strings.HasSuffix(d, "l"), strings.HasSuffix(d, "liters"), strings.HasSuffix(d, "litres"):
		return string(model.UnitSystemMetric)
	}
	return ""
}

// yieldToPotential converts a BeerXML YIELD percentage to a potential
// specific gravity (100% yield = 1.04621, the extract potential of sucrose).
// Unparseable yields pass through empty so the validator drops nothing over
// an optional attribute.
func yieldToPotential(yield string) any {
	var pct float64
	if _, err := fmt.Sscanf(strings.TrimSpace(yield), "%g", &pct); err != nil || pct <= 0 {
		return nil
	}
	return 1 + pct/100*0.04621
}

// kgToGrams rescales a kilogram amount string into grams, preserving
// unparseable input verbatim for the validator to reject.
func kgToGrams(amount string) any {
	var kg float64
	if _, err := fmt.Sscanf(strings.TrimSpace(amount), "%g", &kg); err != nil {
		return strings.TrimSpace(amount)
	}
	return kg * 1000
}
