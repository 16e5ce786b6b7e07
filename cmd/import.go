package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mashnote/mashnote/internal/beerxml"
	"github.com/mashnote/mashnote/internal/importer"
	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/resilience"
	"github.com/mashnote/mashnote/internal/store"
)

var (
	importFiles      []string
	importUnitSystem string
	importYes        bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import BeerXML recipe files into the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		if len(importFiles) == 0 {
			return eris.New("cmd: at least one --file is required")
		}

		autoAccept := importYes || cfg.Import.AutoAccept
		if len(importFiles) > 1 && !autoAccept {
			return eris.New("cmd: importing multiple files requires --yes")
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		imp := &fileImporter{
			store:      st,
			service:    ingredientService(st),
			out:        cmd.OutOrStdout(),
			in:         cmd.InOrStdin(),
			autoAccept: autoAccept,
			unitSystem: importUnitSystem,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Import.MaxConcurrentFiles)
		for _, path := range importFiles {
			g.Go(func() error {
				return imp.importFile(gctx, path)
			})
		}
		return g.Wait()
	},
}

func init() {
	importCmd.Flags().StringSliceVar(&importFiles, "file", nil, "BeerXML file to import (repeatable)")
	importCmd.Flags().StringVar(&importUnitSystem, "unit-system", "", "force unit system: metric or imperial")
	importCmd.Flags().BoolVar(&importYes, "yes", false, "accept the default match decisions without prompting")
	rootCmd.AddCommand(importCmd)
}

// fileImporter runs the import pipeline for each recipe in a file and
// persists the results. Output is serialized so concurrent files do not
// interleave their summaries.
type fileImporter struct {
	store      store.RecipeStore
	service    catalogService
	out        io.Writer
	in         io.Reader
	autoAccept bool
	unitSystem string

	mu sync.Mutex
}

func (f *fileImporter) importFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "cmd: open %s", path)
	}
	defer file.Close()

	recipes, err := beerxml.Parse(file)
	if err != nil {
		return eris.Wrapf(err, "cmd: parse %s", path)
	}
	zap.L().Info("parsed import file",
		zap.String("file", path),
		zap.Int("recipes", len(recipes)),
	)

	for _, raw := range recipes {
		if f.unitSystem != "" {
			raw.UnitSystem = f.unitSystem
		}
		if err := f.importRecipe(ctx, raw); err != nil {
			return eris.Wrapf(err, "cmd: import %q from %s", raw.Name, path)
		}
	}
	return nil
}

func (f *fileImporter) importRecipe(ctx context.Context, raw model.RawRecipe) error {
	session := importer.NewSession(raw)
	params := session.NormalizeUnits()
	kept, dropped := session.ValidateIngredients()
	if len(kept) == 0 {
		return eris.Errorf("no usable ingredients (%d rows dropped)", dropped)
	}

	decisions, err := session.Match(ctx, f.service)
	if err != nil {
		return err
	}

	accepted, err := f.confirm(raw.Name, params, decisions, dropped)
	if err != nil {
		return err
	}
	if !accepted {
		zap.L().Info("import declined", zap.String("recipe", raw.Name))
		return nil
	}

	// The commit batch is idempotent (drafts carry client refs), so a
	// transient store or catalog failure is retried with the same session.
	var (
		finalized []model.FinalizedIngredient
		diags     []importer.ReconcileDiagnostic
	)
	err = resilience.Do(ctx, resilience.RetryConfig{
		OnRetry: resilience.RetryLogger("store", "reconcile"),
	}, func(ctx context.Context) error {
		finalized, diags, err = session.Reconcile(ctx, f.service)
		return err
	})
	if err != nil {
		return err
	}
	for _, d := range diags {
		zap.L().Warn("ingredient left unresolved after commit",
			zap.String("recipe", raw.Name),
			zap.String("ingredient", d.Name),
			zap.Int("index", d.Index),
		)
	}

	metrics, err := session.ComputeMetrics()
	if err != nil {
		return err
	}

	recipe := model.Recipe{
		ID:          uuid.NewString(),
		Params:      params,
		Ingredients: finalized,
		Metrics:     metrics,
		CreatedAt:   time.Now().UTC(),
	}
	saved, err := f.store.SaveRecipe(ctx, recipe)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.out, "imported %q (%s)\n", params.Name, saved.ID)
	if metrics != nil {
		fmt.Fprintf(f.out, "  OG %.3f  FG %.3f  ABV %.1f%%  IBU %.0f  SRM %.1f\n",
			metrics.OG, metrics.FG, metrics.ABV, metrics.IBU, metrics.SRM)
	} else {
		fmt.Fprintln(f.out, "  metrics unavailable: recipe is missing data the formulas need")
	}
	return nil
}

// confirm shows the decision summary and, unless auto-accept is on, asks the
// user to approve the default decisions.
func (f *fileImporter) confirm(name string, params model.RecipeParams, decisions []model.Decision, dropped int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.out, "\n%s (%g %s batch, %s units)\n",
		name, params.BatchSize, params.BatchSizeUnit, params.UnitSystem)
	if dropped > 0 {
		fmt.Fprintf(f.out, "  %d invalid ingredient rows dropped\n", dropped)
	}

	tw := tabwriter.NewWriter(f.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  INGREDIENT\tTYPE\tACTION\tMATCH\tCONFIDENCE")
	for _, d := range decisions {
		match, conf := "-", "-"
		if d.Match != nil {
			match = d.Match.Name
		}
		if d.Confidence > 0 {
			conf = fmt.Sprintf("%.2f", d.Confidence)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", d.Source.Name, d.Source.Type, d.Action, match, conf)
	}
	tw.Flush()

	if f.autoAccept {
		return true, nil
	}

	fmt.Fprint(f.out, "accept these decisions? [Y/n] ")
	scanner := bufio.NewScanner(f.in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, eris.Wrap(err, "cmd: read confirmation")
		}
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes", nil
}
