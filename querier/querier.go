package querier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/graphfleet/sgclient/clients/subgraph"
	"github.com/graphfleet/sgclient/graphql"
	"github.com/graphfleet/sgclient/utils"
	"github.com/graphfleet/sgclient/validator"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Config holds everything needed to run one query against a subgraph.
type Config struct {
	LogLevel utils.LogLevel `mapstructure:"log-level"`
	Colour   bool           `mapstructure:"colour"`

	SubgraphURL string `mapstructure:"subgraph-url" validate:"required,url"`
	AuthToken   string `mapstructure:"auth-token"`
	UserAgent   string `mapstructure:"user-agent"`

	Query         string `mapstructure:"query"`
	QueryFile     string `mapstructure:"query-file"`
	OperationName string `mapstructure:"operation-name"`

	Paginate bool `mapstructure:"paginate"`
	PageSize int  `mapstructure:"page-size" validate:"gt=0"`

	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries int           `mapstructure:"max-retries" validate:"gte=0"`

	Metrics     bool   `mapstructure:"metrics"`
	MetricsPort uint16 `mapstructure:"metrics-port"`
}

// Querier assembles a subgraph client from a Config, runs the configured
// query and writes the resulting JSON to out.
type Querier struct {
	cfg    *Config
	log    *utils.ZapLogger
	client *subgraph.Client
	out    io.Writer
}

func New(cfg *Config, out io.Writer) (*Querier, error) {
	if err := validator.Validator().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	log, err := utils.NewZapLogger(cfg.LogLevel, cfg.Colour)
	if err != nil {
		return nil, errors.Wrap(err, "creating logger")
	}

	client := subgraph.NewClient(cfg.SubgraphURL).
		WithLogger(log).
		WithTimeout(cfg.Timeout).
		WithMaxRetries(cfg.MaxRetries)
	if cfg.AuthToken != "" {
		client = client.WithAuthToken(cfg.AuthToken)
	}
	if cfg.UserAgent != "" {
		client = client.WithUserAgent(cfg.UserAgent)
	}
	if cfg.Metrics {
		client = client.WithListener(makeClientMetrics(prometheus.DefaultRegisterer))
	}

	return &Querier{cfg: cfg, log: log, client: client, out: out}, nil
}

// Run executes the configured query. With pagination enabled the full merged
// result set is written as one JSON array; otherwise the raw data payload is
// written as-is.
func (q *Querier) Run(ctx context.Context) error {
	query, err := q.loadQuery()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	defer wg.Wait()
	if q.cfg.Metrics {
		metricsSrv, err := makeMetricsService(q.cfg.MetricsPort)
		if err != nil {
			return errors.Wrap(err, "starting metrics service")
		}
		wg.Go(func() {
			if err := metricsSrv.Run(ctx); err != nil {
				q.log.Errorw("Metrics service failed", "err", err)
			}
		})
	}

	if q.cfg.Paginate {
		return q.runPaginated(ctx, query)
	}
	return q.runSingle(ctx, query)
}

func (q *Querier) runPaginated(ctx context.Context, query graphql.Document) error {
	results, err := subgraph.PaginatedQuery[json.RawMessage](ctx, q.client, query, q.cfg.PageSize)
	if err != nil {
		return err
	}
	return q.write(results)
}

func (q *Querier) runSingle(ctx context.Context, query graphql.Document) error {
	params := &graphql.RequestParameters{Query: query, OperationName: q.cfg.OperationName}
	data, err := subgraph.Query[json.RawMessage](ctx, q.client, params)
	if err != nil {
		// Partial data is still written; the error is reported alongside it.
		var partial *graphql.PartialError
		if !errors.As(err, &partial) || len(data) == 0 {
			return err
		}
		q.log.Warn("Query completed with errors", zap.Error(partial))
		if writeErr := q.write(data); writeErr != nil {
			return writeErr
		}
		return err
	}
	return q.write(data)
}

func (q *Querier) write(v any) error {
	encoder := json.NewEncoder(q.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (q *Querier) loadQuery() (graphql.Document, error) {
	switch {
	case q.cfg.Query != "" && q.cfg.QueryFile != "":
		return "", errors.New("query and query-file are mutually exclusive")
	case q.cfg.Query != "":
		return graphql.Document(q.cfg.Query), nil
	case q.cfg.QueryFile != "":
		content, err := os.ReadFile(q.cfg.QueryFile)
		if err != nil {
			return "", fmt.Errorf("reading query file: %w", err)
		}
		return graphql.Document(content), nil
	default:
		return "", errors.New("no query provided")
	}
}
