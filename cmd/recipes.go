package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mashnote/mashnote/internal/export"
	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/store"
)

var (
	recipesName  string
	recipesStyle string
	recipesLimit int

	exportFormat string
	exportOut    string
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Browse and export the recipe library",
}

var recipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("recipes"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		recipes, err := st.ListRecipes(cmd.Context(), store.RecipeFilter{
			Name: recipesName, Style: recipesStyle, Limit: recipesLimit,
		})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSTYLE\tBATCH\tOG\tIBU")
		for _, r := range recipes {
			og, ibu := "-", "-"
			if r.Metrics != nil {
				og = fmt.Sprintf("%.3f", r.Metrics.OG)
				ibu = fmt.Sprintf("%.0f", r.Metrics.IBU)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%g %s\t%s\t%s\n",
				r.ID, r.Params.Name, r.Params.Style, r.Params.BatchSize, r.Params.BatchSizeUnit, og, ibu)
		}
		return tw.Flush()
	},
}

var recipesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one recipe as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("recipes"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		recipe, err := st.GetRecipe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if recipe == nil {
			return eris.Errorf("cmd: recipe %s not found", args[0])
		}
		return export.WriteYAML(cmd.OutOrStdout(), []model.Recipe{*recipe})
	},
}

var recipesExportCmd = &cobra.Command{
	Use:   "export [id...]",
	Short: "Export recipes to a YAML or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("recipes"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		var recipes []model.Recipe
		if len(args) > 0 {
			for _, id := range args {
				r, err := st.GetRecipe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if r == nil {
					return eris.Errorf("cmd: recipe %s not found", id)
				}
				recipes = append(recipes, *r)
			}
		} else {
			recipes, err = st.ListRecipes(cmd.Context(), store.RecipeFilter{})
			if err != nil {
				return err
			}
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "cmd: create %s", exportOut)
		}
		defer f.Close()

		switch exportFormat {
		case "yaml":
			err = export.WriteYAML(f, recipes)
		case "xlsx":
			err = export.WriteXLSX(f, recipes)
		default:
			return eris.Errorf("cmd: unknown export format %q", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "exported %d recipes to %s\n", len(recipes), exportOut)
		return nil
	},
}

var recipesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recipe from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("recipes"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteRecipe(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	recipesListCmd.Flags().StringVar(&recipesName, "name", "", "filter by name substring")
	recipesListCmd.Flags().StringVar(&recipesStyle, "style", "", "filter by style substring")
	recipesListCmd.Flags().IntVar(&recipesLimit, "limit", 50, "maximum rows")

	recipesExportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "export format: yaml or xlsx")
	recipesExportCmd.Flags().StringVar(&exportOut, "out", "recipes.yaml", "output file path")

	recipesCmd.AddCommand(recipesListCmd, recipesShowCmd, recipesExportCmd, recipesDeleteCmd)
	rootCmd.AddCommand(recipesCmd)
}
