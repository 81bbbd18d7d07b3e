// Package export runs the command line tool: it exports the documents
// matching a query, counts them, or writes one row per distinct group.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-repository/elastic"
	elasticv7 "github.com/pteich/elastic-repository/elastic/v7"
	elasticv8 "github.com/pteich/elastic-repository/elastic/v8"
	elasticv9 "github.com/pteich/elastic-repository/elastic/v9"
	"github.com/pteich/elastic-repository/flags"
	"github.com/pteich/elastic-repository/formats"
	"github.com/pteich/elastic-repository/query"
	"github.com/pteich/elastic-repository/repository"
)

const (
	workers   = 8
	groupName = "groupby"
)

type Formatter interface {
	Run(context.Context, <-chan formats.Document) error
}

var errUnsupportedVersion = errors.New("unsupported ElasticSearch version")

func Run(ctx context.Context, conf *flags.Flags, logger *zap.Logger) error {
	conf.SplitFields()

	repo, stop, err := newRepository(conf, logger)
	if err != nil {
		return fmt.Errorf("connect to ElasticSearch: %w", err)
	}
	defer stop()

	if conf.GroupBy != "" {
		return lookup(ctx, conf, repo)
	}

	q, err := buildQuery(conf)
	if err != nil {
		return err
	}

	total, err := repo.CountByQuery(ctx, q)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if conf.Count {
		_, err := fmt.Fprintln(os.Stdout, total)
		return err
	}

	out, closeOut, err := openOutput(conf.Outfile)
	if err != nil {
		return err
	}
	defer closeOut()

	bar := pb.StartNew(int(total))
	defer bar.Finish()

	g, ctx := errgroup.WithContext(ctx)
	docs := make(chan formats.Document)
	g.Go(func() error {
		defer close(docs)
		return scroll(ctx, conf, repo, q, docs, logger)
	})
	g.Go(func() error {
		return formatter(conf, out, bar).Run(ctx, docs)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("export finished", zap.String("index", conf.Index), zap.Int64("documents", total))
	return nil
}

func newRepository(conf *flags.Flags, logger *zap.Logger) (*repository.Repository, func(), error) {
	connection := conf.Connection()
	httpClient, err := connection.HTTPClient()
	if err != nil {
		return nil, nil, err
	}

	var client elastic.Client
	stop := func() {}

	switch conf.ElasticVersion {
	case 7:
		c, err := elasticv7.NewClient(elasticv7.Options(connection, httpClient, logger))
		if err != nil {
			return nil, nil, err
		}
		client, stop = c, c.Stop
	case 8:
		c, err := elasticv8.NewClient(elasticv8.NewConfig(connection, httpClient))
		if err != nil {
			return nil, nil, err
		}
		client = c
	case 9:
		c, err := elasticv9.NewClient(elasticv9.NewConfig(connection, httpClient))
		if err != nil {
			return nil, nil, err
		}
		client = c
	default:
		return nil, nil, fmt.Errorf("%w: %d", errUnsupportedVersion, conf.ElasticVersion)
	}

	cfg, err := repository.NewConfiguration(map[string]any{
		repository.OptionIndex:          conf.Index,
		repository.OptionScroll:         conf.KeepAlive,
		repository.OptionTrackTotalHits: true,
	})
	if err != nil {
		stop()
		return nil, nil, err
	}
	repo, err := repository.New(client, cfg, repository.WithLogger(logger))
	if err != nil {
		stop()
		return nil, nil, err
	}
	return repo, stop, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func formatter(conf *flags.Flags, out io.Writer, bar *pb.ProgressBar) Formatter {
	switch conf.OutFormat {
	case flags.FormatJSON:
		return formats.JSON{Outfile: out, ProgressBar: bar}
	case flags.FormatRAW:
		return formats.Raw{Outfile: out, ProgressBar: bar}
	default:
		return formats.CSV{Fields: conf.Fields, Outfile: out, Workers: workers, ProgressBar: bar}
	}
}

// scroll sends every matching document to docs and releases the scroll
// context when done.
func scroll(ctx context.Context, conf *flags.Flags, repo *repository.Repository, q query.Builder, docs chan<- formats.Document, logger *zap.Logger) error {
	page, err := repo.FindScrollableByQuery(ctx, q, conf.KeepAlive)
	if err != nil {
		return err
	}
	scrollID := page.ScrollID()
	defer func() {
		if scrollID != "" {
			if err := repo.ClearScrollID(context.WithoutCancel(ctx), scrollID); err != nil {
				logger.Debug("scroll context not released", zap.String("scroll_id", scrollID), zap.Error(err))
			}
		}
	}()

	for page.Len() > 0 {
		for id, doc := range page.All() {
			source, _ := doc.(map[string]any)
			select {
			case docs <- formats.Document{ID: id, Source: source}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if page.Len() < conf.ScrollSize || scrollID == "" {
			return nil
		}

		page, err = repo.FindByScrollID(ctx, scrollID, conf.KeepAlive)
		if err != nil {
			return err
		}
		if id := page.ScrollID(); id != "" {
			scrollID = id
		}
	}
	return nil
}

func lookup(ctx context.Context, conf *flags.Flags, repo *repository.Repository) error {
	fields := conf.GroupByFields()
	sources := query.NewSources()
	for _, field := range fields {
		sources.Add(field, field)
	}

	q, err := query.NewCompositeAggregationBuilder(groupName).
		Filters(query.NewFilters(rangeFilters(conf)...)).
		Sources(sources).
		Size(conf.ScrollSize).
		Build()
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(conf.Outfile)
	if err != nil {
		return err
	}
	defer closeOut()

	bar := pb.StartNew(0)
	defer bar.Finish()

	return formats.Buckets{Fields: fields, Outfile: out, ProgressBar: bar}.Run(ctx, repo.Lookup(ctx, q))
}

func rangeFilters(conf *flags.Flags) []*query.Filter {
	var filters []*query.Filter
	if conf.StartDate != "" {
		filters = append(filters, query.NewFilter(conf.Timefield, conf.StartDate).WithOperator(query.OpGTE))
	}
	if conf.EndDate != "" {
		filters = append(filters, query.NewFilter(conf.Timefield, conf.EndDate).WithOperator(query.OpLTE))
	}
	return filters
}

// pageable is satisfied by every query type with the shared base fields.
type pageable[T any] interface {
	query.Builder
	Select(fields ...string) T
	Sort(field string, order query.SortOrder) T
	Limit(n int) T
}

func buildQuery(conf *flags.Flags) (query.Builder, error) {
	filters := rangeFilters(conf)

	if conf.RAWQuery != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(conf.RAWQuery), &raw); err != nil {
			return nil, fmt.Errorf("parse raw query: %w", err)
		}
		clause, err := withFilters(raw, filters)
		if err != nil {
			return nil, err
		}
		return shape(query.NewClauseQuery(clause), conf)
	}

	q, err := query.New()
	if err != nil {
		return nil, err
	}
	q.Filter(filters...)
	if conf.Query != "" {
		q.SearchOperator(query.OperatorMust).
			Search(query.NewSearch(conf.SearchFieldList(), conf.Query, query.QueryString))
	}
	return shape(q, conf)
}

// withFilters wraps a raw clause in a bool query filtered by filters.
func withFilters(clause map[string]any, filters []*query.Filter) (map[string]any, error) {
	if len(filters) == 0 {
		return clause, nil
	}
	if len(clause) == 0 {
		clause = map[string]any{"match_all": map[string]any{}}
	}
	filter := make([]any, 0, len(filters))
	for _, f := range filters {
		source, err := f.Source()
		if err != nil {
			return nil, err
		}
		filter = append(filter, source)
	}
	return map[string]any{"bool": map[string]any{
		"filter": filter,
		"must":   []any{clause},
	}}, nil
}

func shape[T pageable[T]](q T, conf *flags.Flags) (query.Builder, error) {
	if len(conf.Fields) > 0 {
		q = q.Select(conf.Fields...)
	}
	if conf.Sort != "" {
		field, order, _ := strings.Cut(conf.Sort, ":")
		sortOrder := query.Asc
		if order != "" {
			var err error
			if sortOrder, err = query.ParseSortOrder(order); err != nil {
				return nil, err
			}
		}
		q = q.Sort(strings.TrimSpace(field), sortOrder)
	}
	return q.Limit(conf.ScrollSize), nil
}
