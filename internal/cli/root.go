// Package cli implements the nlp-enrich command tree.
package cli

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath    string
	logLevel      string
	logFormat     string
	metricsAddr   string
	errorHandling string
	verbose       bool
	workers       int
	batchSize     int
	rateLimit     int
	period        float64
	redisAddr     string
	cache         bool
	sharedLimit   bool
}

// env supplies the environment and transport to commands.
type env struct {
	lookup     func(string) (string, bool)
	httpClient *http.Client
}

// NewRootCmd creates the root command.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, env{lookup: os.LookupEnv})
}

func newRootCmd(version string, e env) *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "nlp-enrich",
		Short:         "Enrich CSV datasets with Azure Text Analytics",
		Long:          "nlp-enrich calls Azure Cognitive Services Text Analytics for every row of a CSV file, in parallel batches under a rate limit, and writes the results as new columns.",
		Version:       version,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "log format: json, pretty, auto")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	pf.StringVar(&g.errorHandling, "error-handling", "", "LOG records errors on rows, FAIL aborts on the first error")
	pf.BoolVar(&g.verbose, "verbose", false, "keep the raw error column")
	pf.IntVar(&g.workers, "workers", 0, "number of parallel workers")
	pf.IntVar(&g.batchSize, "batch-size", 0, "rows per API call (1-1000)")
	pf.IntVar(&g.rateLimit, "rate-limit", 0, "maximum API calls per period")
	pf.Float64Var(&g.period, "period", 0, "rate limit period in seconds")
	pf.StringVar(&g.redisAddr, "redis-addr", "", "Redis address for the response cache and shared rate limit")
	pf.BoolVar(&g.cache, "cache", false, "cache API responses in Redis")
	pf.BoolVar(&g.sharedLimit, "shared-rate-limit", false, "share the rate limit with other processes through Redis")

	cmd.AddCommand(
		newLanguageDetectionCmd(g, e),
		newSentimentCmd(g, e),
		newEntitiesCmd(g, e),
		newKeyPhrasesCmd(g, e),
	)

	return cmd
}

const rootCmdExample = `  # Detect the language of the "review" column
  nlp-enrich language-detection -i reviews.csv -o languages.csv --text-column review

  # Sentiment with a fixed language, failing on the first API error
  nlp-enrich sentiment -i reviews.csv -o sentiment.csv --text-column review --language en --error-handling FAIL

  # Locations and organizations scoring at least 0.8
  nlp-enrich entities -i news.csv -o entities.csv --text-column body --entity-types Location,Organization --min-score 0.8

  # Five key phrases per row, language read from the "lang" column
  nlp-enrich key-phrases -i posts.csv -o phrases.csv --text-column body --language-column lang --count 5`
