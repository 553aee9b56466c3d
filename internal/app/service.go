// Package service runs the ranking pipeline: it loads a databank export,
// ranks it, writes the ranked table and materializes the ranked strategy
// files in the destination directory.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sqxrank/internal/adapters/fsstore"
	"github.com/okian/sqxrank/internal/adapters/table"
	"github.com/okian/sqxrank/internal/domain/model"
	"github.com/okian/sqxrank/internal/domain/ranking"
	"github.com/okian/sqxrank/internal/domain/selection"
	"github.com/okian/sqxrank/pkg/logger"
	"github.com/okian/sqxrank/pkg/metrics"
)

// Defaults for the output locations, relative to the input directory.
const (
	DefaultOutputName     = "top_100_ponderado.csv"
	DefaultDestinationDir = "mejores_estrategias"
	DefaultDelimiter      = ","
	xlsxExt               = ".xlsx"
)

// Request is one ranking invocation.
type Request struct {
	InputPath string
	Criteria  ranking.Criteria
}

// Report describes a finished run.
type Report struct {
	RunID       string
	InputPath   string
	Result      *ranking.Result
	OutputPath  string // empty in compute-only mode
	XLSXPath    string // empty unless spreadsheet output is enabled
	Destination string // empty in compute-only mode
	Copies      []selection.Copy
	Unmatched   []string // IDs of ranked entries with no strategy file
	Removed     int      // destination entries removed before copying
	Duration    time.Duration
}

// Service implements the ranking pipeline.
type Service struct {
	logger logger.Logger

	inputDelimiter  string
	outputDelimiter string
	outputName      string
	destinationDir  string
	strategyExt     string
	xlsx            bool
	excluded        []string
	engineOpts      []ranking.Option

	reader *table.CSV
	writer *table.CSV
	engine *ranking.Engine
	store  *fsstore.Store
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDelimiter sets the input export delimiter.
func WithDelimiter(d string) Option {
	return func(s *Service) {
		s.inputDelimiter = d
	}
}

// WithOutputDelimiter sets the ranked table delimiter.
func WithOutputDelimiter(d string) Option {
	return func(s *Service) {
		s.outputDelimiter = d
	}
}

// WithOutputName sets the ranked table file name.
func WithOutputName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.outputName = name
		}
	}
}

// WithDestinationDir sets the name of the directory receiving the copies.
func WithDestinationDir(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.destinationDir = name
		}
	}
}

// WithStrategyExt sets the extension of eligible strategy files.
func WithStrategyExt(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.strategyExt = ext
		}
	}
}

// WithTopK sets the size of the ranked table.
func WithTopK(k int) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, ranking.WithTopK(k))
	}
}

// WithDirections replaces the lower-is-better table.
func WithDirections(d ranking.Directions) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, ranking.WithDirections(d))
	}
}

// WithXLSX enables the spreadsheet copy of the ranked table.
func WithXLSX(enabled bool) Option {
	return func(s *Service) {
		s.xlsx = enabled
	}
}

// WithExcludedColumns hides columns from Columns.
func WithExcludedColumns(names []string) Option {
	return func(s *Service) {
		s.excluded = names
	}
}

// New constructs a Service. It fails only on an invalid delimiter.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		inputDelimiter:  DefaultDelimiter,
		outputDelimiter: DefaultDelimiter,
		outputName:      DefaultOutputName,
		destinationDir:  DefaultDestinationDir,
		strategyExt:     selection.DefaultExtension,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	var err error
	if s.reader, err = table.NewCSV(s.inputDelimiter); err != nil {
		return nil, fmt.Errorf("input delimiter: %w", err)
	}
	if s.writer, err = table.NewCSV(s.outputDelimiter); err != nil {
		return nil, fmt.Errorf("output delimiter: %w", err)
	}
	s.engine = ranking.NewEngine(s.engineOpts...)
	s.store = fsstore.New(fsstore.WithLogger(s.logger.Named("fsstore")))

	return s, nil
}

// Directions returns the lower-is-better table in use.
func (s *Service) Directions() ranking.Directions {
	return s.engine.Directions()
}

// Columns lists the numeric columns of the export that can be ranked by.
func (s *Service) Columns(ctx context.Context, inputPath string) ([]string, error) {
	ds, err := s.load(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	return ds.NumericColumns(s.excluded...), nil
}

// ReadRanked loads a ranked table previously written by Run.
func (s *Service) ReadRanked(ctx context.Context, path string) (*ranking.Result, error) {
	res, err := s.writer.ReadRanked(ctx, path)
	if err != nil {
		return nil, wrap("read ranked table", sourceKind(err), err)
	}
	return res, nil
}

// Compute loads and ranks the export without touching the file system.
func (s *Service) Compute(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), InputPath: req.InputPath}
	log := s.logger.Named("compute")

	res, err := s.rank(ctx, req)
	if err != nil {
		metrics.RecordError(KindOf(err))
		log.Error(ctx, "compute failed", logger.String("run_id", rep.RunID), logger.Error(err))
		return nil, err
	}

	rep.Result = res
	rep.Duration = time.Since(start)
	log.Info(ctx, "ranking computed",
		logger.String("run_id", rep.RunID),
		logger.Int("records", res.Total),
		logger.Int("ranked", res.Len()),
		logger.Duration("took", rep.Duration),
	)
	return rep, nil
}

// Run executes the full pipeline. Every check (columns, source listing,
// destination kind and write access) happens before the first write, so a failed
// validation leaves the file system untouched. A failure while copying
// leaves the destination partially populated.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), InputPath: req.InputPath}
	log := s.logger.Named("run")

	err := s.run(ctx, req, rep)
	rep.Duration = time.Since(start)
	ms := float64(rep.Duration.Microseconds()) / 1000

	if err != nil {
		metrics.RecordRun(metrics.OutcomeFailure, ms)
		metrics.RecordError(KindOf(err))
		log.Error(ctx, "ranking run failed",
			logger.String("run_id", rep.RunID),
			logger.String("kind", KindOf(err)),
			logger.Error(err),
		)
		return nil, err
	}

	metrics.RecordRun(metrics.OutcomeSuccess, ms)
	log.Info(ctx, "ranking run finished",
		logger.String("run_id", rep.RunID),
		logger.Int("records", rep.Result.Total),
		logger.Int("ranked", rep.Result.Len()),
		logger.Int("copies", len(rep.Copies)),
		logger.Int("unmatched", len(rep.Unmatched)),
		logger.String("output", rep.OutputPath),
		logger.String("destination", rep.Destination),
		logger.Duration("took", rep.Duration),
	)
	return rep, nil
}

func (s *Service) run(ctx context.Context, req Request, rep *Report) error {
	res, err := s.rank(ctx, req)
	if err != nil {
		return err
	}
	rep.Result = res

	dir := filepath.Dir(req.InputPath)
	names, err := s.store.List(ctx, dir)
	if err != nil {
		return wrap("list source", ErrSourceNotFound, err)
	}
	rep.Copies = selection.Plan(res.Entries, selection.Candidates(names, s.strategyExt), s.strategyExt)
	rep.Unmatched = selection.Unmatched(res.Entries, rep.Copies)

	rep.Destination = filepath.Join(dir, s.destinationDir)
	if err := s.store.Inspect(rep.Destination); err != nil {
		return wrap("inspect destination", ErrDestination, err)
	}

	// Mutations start here.
	rep.OutputPath = filepath.Join(dir, s.outputName)
	if err := s.writer.WriteRanked(ctx, rep.OutputPath, res); err != nil {
		return wrap("write ranked table", ErrDestination, err)
	}
	if s.xlsx {
		rep.XLSXPath = xlsxPath(rep.OutputPath)
		if err := table.NewXLSX().WriteRanked(ctx, rep.XLSXPath, res); err != nil {
			return wrap("write ranked spreadsheet", ErrDestination, err)
		}
	}

	removed, err := s.store.Reset(ctx, rep.Destination)
	rep.Removed = removed
	metrics.RecordDestinationEntriesRemoved(removed)
	if err != nil {
		return wrap("reset destination", ErrDestination, err)
	}

	copied := 0
	defer func() { metrics.RecordFilesCopied(copied) }()
	for _, c := range rep.Copies {
		src := filepath.Join(dir, c.Source)
		dst := filepath.Join(rep.Destination, c.Target)
		if err := s.store.Copy(ctx, src, dst); err != nil {
			return wrap("copy "+c.Source, ErrDestination, err)
		}
		copied++
	}
	return nil
}

func (s *Service) rank(ctx context.Context, req Request) (*ranking.Result, error) {
	ds, err := s.load(ctx, req.InputPath)
	if err != nil {
		return nil, err
	}
	metrics.UpdateRecordsLoaded(ds.Len())

	res, err := s.engine.Rank(ctx, ds, req.Criteria)
	if err != nil {
		return nil, wrap("rank", nil, err)
	}
	metrics.UpdateRecordsRanked(res.Len())
	return res, nil
}

func (s *Service) load(ctx context.Context, path string) (*model.Dataset, error) {
	ds, err := s.reader.ReadFile(ctx, path)
	if err != nil {
		return nil, wrap("load "+path, sourceKind(err), err)
	}
	s.logger.Debug(ctx, "export loaded",
		logger.String("path", path),
		logger.Int("records", ds.Len()),
		logger.Int("columns", len(ds.Columns)),
	)
	return ds, nil
}

func sourceKind(err error) error {
	if errors.Is(err, table.ErrOpen) {
		return ErrSourceNotFound
	}
	return nil
}

func xlsxPath(csvPath string) string {
	return csvPath[:len(csvPath)-len(filepath.Ext(csvPath))] + xlsxExt
}
