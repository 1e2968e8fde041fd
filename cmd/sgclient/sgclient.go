package main

import (
	"context"
	"io"
	"time"

	"github.com/graphfleet/sgclient/querier"
	"github.com/graphfleet/sgclient/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version string

const (
	configF        = "config"
	logLevelF      = "log-level"
	colourF        = "colour"
	subgraphURLF   = "subgraph-url"
	authTokenF     = "auth-token"
	userAgentF     = "user-agent"
	queryF         = "query"
	queryFileF     = "query-file"
	operationNameF = "operation-name"
	paginateF      = "paginate"
	pageSizeF      = "page-size"
	timeoutF       = "timeout"
	maxRetriesF    = "max-retries"
	metricsF       = "metrics"
	metricsPortF   = "metrics-port"

	defaultConfig      = ""
	defaultColour      = true
	defaultPaginate    = false
	defaultPageSize    = 200
	defaultTimeout     = 10 * time.Second
	defaultMaxRetries  = 0
	defaultMetrics     = false
	defaultMetricsPort = uint16(9090)

	configFlagUsage   = "The yaml configuration file."
	logLevelFlagUsage = "Options: debug, info, warn, error."
	colourUsage       = "Use colour in log outputs."
	subgraphURLUsage  = "The subgraph endpoint to query."
	authTokenUsage    = "Bearer token added to the Authorization header of every request."
	userAgentUsage    = "User agent sent with every request."
	queryUsage        = "The GraphQL query document to execute."
	queryFileUsage    = "Path of a file containing the GraphQL query document to execute."
	operationNamefUse = "Name of the operation in the document to execute."
	paginateUsage     = "Page through the full result set under one consistent block anchor. " +
		"The query must order entities by id ascending and filter with id_gt: $last."
	pageSizeUsage   = "Number of entities fetched per page when paginating."
	timeoutUsage    = "Timeout applied to each page request individually."
	maxRetriesUsage = "Number of times a request is retried on transport-level failures. " +
		"Responses classified as GraphQL errors are never retried."
	metricsUsage     = "Enables the prometheus metrics server."
	metricsPortUsage = "The port on which the metrics server listens."
)

var cfgFile string

// Runner is the part of the querier the command needs.
type Runner interface {
	Run(ctx context.Context) error
}

type NewQuerierFn func(cfg *querier.Config, out io.Writer) (Runner, error)

func NewCmd(newQuerierFn NewQuerierFn) *cobra.Command {
	sgCmd := &cobra.Command{
		Use:     "sgclient [flags]",
		Short:   "Query subgraphs over GraphQL-over-HTTP with reorg-consistent pagination.",
		Version: Version,
	}

	sgCmd.Flags().StringVar(&cfgFile, configF, defaultConfig, configFlagUsage)
	sgCmd.Flags().Var(utils.NewLogLevel(utils.INFO), logLevelF, logLevelFlagUsage)
	sgCmd.Flags().Bool(colourF, defaultColour, colourUsage)
	sgCmd.Flags().String(subgraphURLF, "", subgraphURLUsage)
	sgCmd.Flags().String(authTokenF, "", authTokenUsage)
	sgCmd.Flags().String(userAgentF, "", userAgentUsage)
	sgCmd.Flags().String(queryF, "", queryUsage)
	sgCmd.Flags().String(queryFileF, "", queryFileUsage)
	sgCmd.Flags().String(operationNameF, "", operationNamefUse)
	sgCmd.Flags().Bool(paginateF, defaultPaginate, paginateUsage)
	sgCmd.Flags().Int(pageSizeF, defaultPageSize, pageSizeUsage)
	sgCmd.Flags().Duration(timeoutF, defaultTimeout, timeoutUsage)
	sgCmd.Flags().Int(maxRetriesF, defaultMaxRetries, maxRetriesUsage)
	sgCmd.Flags().Bool(metricsF, defaultMetrics, metricsUsage)
	sgCmd.Flags().Uint16(metricsPortF, defaultMetricsPort, metricsPortUsage)

	sgCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v := viper.New()
		if cfgFile != "" {
			v.SetConfigType("yaml")
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
		}

		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		cfg := new(querier.Config)
		if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		))); err != nil {
			return err
		}

		q, err := newQuerierFn(cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return q.Run(cmd.Context())
	}

	return sgCmd
}
