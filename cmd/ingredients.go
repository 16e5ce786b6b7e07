package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/store"
)

var (
	ingredientsType  string
	ingredientsLimit int

	addType        string
	addPotential   float64
	addColor       float64
	addAlphaAcid   float64
	addAttenuation float64
	addNotes       string
)

var ingredientsCmd = &cobra.Command{
	Use:   "ingredients",
	Short: "Browse and maintain the ingredient catalog",
}

var ingredientsListCmd = &cobra.Command{
	Use:     "list [query]",
	Aliases: []string{"search"},
	Short:   "List catalog ingredients, optionally filtered by name and type",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingredients"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.SearchFilter{
			Type:  model.IngredientType(ingredientsType),
			Limit: ingredientsLimit,
		}
		if len(args) == 1 {
			filter.Query = args[0]
		}
		found, err := st.SearchIngredients(cmd.Context(), filter)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tDETAILS")
		for _, ing := range found {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ing.ID, ing.Name, ing.Type, ingredientDetails(ing))
		}
		return tw.Flush()
	},
}

var ingredientsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an ingredient to the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingredients"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		draft := model.IngredientDraft{
			ClientRef: uuid.NewString(),
			Name:      args[0],
			Type:      model.IngredientType(addType),
			Notes:     addNotes,
		}
		switch draft.Type {
		case model.TypeGrain:
			if cmd.Flags().Changed("potential") {
				draft.Potential = &addPotential
			}
			if cmd.Flags().Changed("color") {
				draft.Color = &addColor
			}
		case model.TypeHop:
			if cmd.Flags().Changed("alpha-acid") {
				draft.AlphaAcid = &addAlphaAcid
			}
		case model.TypeYeast:
			if cmd.Flags().Changed("attenuation") {
				draft.Attenuation = &addAttenuation
			}
		}

		created, err := st.CreateIngredients(cmd.Context(), []model.IngredientDraft{draft})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %q (%s)\n", created[0].Name, created[0].ID)
		return nil
	},
}

func ingredientDetails(ing model.Ingredient) string {
	switch ing.Type {
	case model.TypeGrain:
		if ing.Potential != nil && ing.Color != nil {
			return fmt.Sprintf("potential %.3f, color %.0f L", *ing.Potential, *ing.Color)
		}
	case model.TypeHop:
		if ing.AlphaAcid != nil {
			return fmt.Sprintf("%.1f%% AA", *ing.AlphaAcid)
		}
	case model.TypeYeast:
		if ing.Attenuation != nil {
			return fmt.Sprintf("%.0f%% attenuation", *ing.Attenuation)
		}
	}
	return ""
}

func init() {
	ingredientsListCmd.Flags().StringVar(&ingredientsType, "type", "", "filter by type (grain, hop, yeast, other)")
	ingredientsListCmd.Flags().IntVar(&ingredientsLimit, "limit", 50, "maximum rows")

	ingredientsAddCmd.Flags().StringVar(&addType, "type", "", "ingredient type (grain, hop, yeast, other)")
	ingredientsAddCmd.Flags().Float64Var(&addPotential, "potential", 0, "grain potential as specific gravity, e.g. 1.037")
	ingredientsAddCmd.Flags().Float64Var(&addColor, "color", 0, "grain color in degrees Lovibond")
	ingredientsAddCmd.Flags().Float64Var(&addAlphaAcid, "alpha-acid", 0, "hop alpha acid percentage")
	ingredientsAddCmd.Flags().Float64Var(&addAttenuation, "attenuation", 0, "yeast attenuation percentage")
	ingredientsAddCmd.Flags().StringVar(&addNotes, "notes", "", "free-form notes")
	ingredientsAddCmd.MarkFlagRequired("type")

	ingredientsCmd.AddCommand(ingredientsListCmd, ingredientsAddCmd)
	rootCmd.AddCommand(ingredientsCmd)
}
