package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/nlp-enricher/internal/recipe"
	"github.com/Sternrassler/nlp-enricher/pkg/engine"
	"github.com/Sternrassler/nlp-enricher/pkg/format"
)

func newLanguageDetectionCmd(g *globalOptions, e env) *cobra.Command {
	o := &ioOptions{}
	var countryHint string

	cmd := &cobra.Command{
		Use:   "language-detection",
		Short: "Detect the language of a text column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, g, e, o, func(ctx context.Context, r *recipe.Runner, t *engine.Table) (*recipe.Result, error) {
				return r.DetectLanguage(ctx, t, recipe.LanguageDetectionOptions{
					TextColumn:  o.textColumn,
					CountryHint: countryHint,
					Prefix:      o.prefix,
				})
			})
		},
	}
	o.register(cmd, false)
	cmd.Flags().StringVar(&countryHint, "country-hint", "", "ISO 3166-1 alpha-2 country code biasing detection")
	return cmd
}

func newSentimentCmd(g *globalOptions, e env) *cobra.Command {
	o := &ioOptions{}

	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Score the sentiment of a text column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, g, e, o, func(ctx context.Context, r *recipe.Runner, t *engine.Table) (*recipe.Result, error) {
				return r.AnalyzeSentiment(ctx, t, o.textOptions())
			})
		},
	}
	o.register(cmd, true)
	return cmd
}

func newEntitiesCmd(g *globalOptions, e env) *cobra.Command {
	o := &ioOptions{}
	var (
		types    []string
		minScore float64
	)

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Recognize named entities in a text column",
		Long:  "Recognize named entities in a text column. Entity types: " + entityTypeList() + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := parseEntityTypes(types)
			if err != nil {
				return err
			}
			return execute(cmd, g, e, o, func(ctx context.Context, r *recipe.Runner, t *engine.Table) (*recipe.Result, error) {
				return r.RecognizeEntities(ctx, t, recipe.EntityOptions{
					TextOptions: o.textOptions(),
					Types:       selected,
					MinScore:    minScore,
				})
			})
		},
	}
	o.register(cmd, true)
	cmd.Flags().StringSliceVar(&types, "entity-types", nil, "entity types to extract (default: all)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum confidence score from 0 to 1")
	return cmd
}

func newKeyPhrasesCmd(g *globalOptions, e env) *cobra.Command {
	o := &ioOptions{}
	var count int

	cmd := &cobra.Command{
		Use:   "key-phrases",
		Short: "Extract key phrases from a text column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, g, e, o, func(ctx context.Context, r *recipe.Runner, t *engine.Table) (*recipe.Result, error) {
				return r.ExtractKeyPhrases(ctx, t, recipe.KeyPhraseOptions{
					TextOptions: o.textOptions(),
					Count:       count,
				})
			})
		},
	}
	o.register(cmd, true)
	cmd.Flags().IntVar(&count, "count", recipe.DefaultKeyPhrases, "number of key phrase columns")
	return cmd
}

func parseEntityTypes(names []string) ([]format.EntityType, error) {
	types := make([]format.EntityType, 0, len(names))
	for _, n := range names {
		t, err := format.ParseEntityType(n)
		if err != nil {
			return nil, fmt.Errorf("%w (valid: %s)", err, entityTypeList())
		}
		types = append(types, t)
	}
	return types, nil
}

func entityTypeList() string {
	all := format.EntityTypes()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
