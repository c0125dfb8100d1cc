// Package pipeline orchestrates the full collection cycle: fetch raw
// feeds from every source, archive them into per-country day files,
// register parsed incidents into the ledger and rebuild the day's
// export artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"opsintel/internal/archive"
	"opsintel/internal/config"
	"opsintel/internal/export"
	"opsintel/internal/gazetteer"
	"opsintel/internal/geocode"
	"opsintel/internal/incident"
	"opsintel/internal/ingest"
	"opsintel/internal/observability"
	"opsintel/internal/opday"
	"opsintel/internal/parser"
	"opsintel/internal/sicu"
	"opsintel/internal/textnorm"
	"opsintel/internal/translate"
	"opsintel/models"
)

const (
	// webMinInterval keeps web scrapes from hammering the same portal
	// when batches run close together.
	webMinInterval = 5 * time.Minute

	headerLayout = "2006-01-02 15:04:05"
)

// minCollectDate guards the archive against sources replaying history
// from before the collection effort started.
var minCollectDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrBadDay reports a day string outside the YYYY-MM-DD form.
	ErrBadDay = errors.New("invalid day")

	// ErrEmptyFeed reports that a submitted text had no usable content
	// left after noise stripping.
	ErrEmptyFeed = errors.New("empty feed text")

	// ErrNoArchive reports that no day file exists for the requested
	// country and day.
	ErrNoArchive = errors.New("no archived feed")
)

// BatchRequest selects what a batch builds. Pais narrows the day build
// to one country; Day overrides the op-day (YYYY-MM-DD). Both default
// to everything configured and today.
type BatchRequest struct {
	Pais string `json:"pais,omitempty"`
	Day  string `json:"day,omitempty"`
}

// CountrySummary reports the outcome of one country's day build.
type CountrySummary struct {
	Pais       string   `json:"pais"`
	Day        string   `json:"day"`
	Parsed     int      `json:"parsed"`
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
	Resolved   int      `json:"resolved"`
	Rows       int      `json:"rows"`
	Removed    int      `json:"removed"`
	Artifacts  []string `json:"artifacts,omitempty"`
}

// BatchResult reports one full collection cycle.
type BatchResult struct {
	BatchID   string           `json:"batch_id"`
	Day       string           `json:"day"`
	Fetched   int              `json:"fetched"`
	Archived  int              `json:"archived"`
	Countries []CountrySummary `json:"countries,omitempty"`
}

// Options carries the pipeline dependencies. Config, Store, Registrar
// and Builder must be set; everything else falls back to a working
// default.
type Options struct {
	Config     *config.Config
	Sources    []ingest.Source
	Store      *archive.Store
	Registrar  *incident.Service
	Resolver   *geocode.Resolver
	Builder    *sicu.Builder
	Translator translate.Translator
	Metrics    *observability.Metrics
	Readiness  *observability.Readiness
	Clock      clockwork.Clock
	Location   *time.Location
	Logger     *zerolog.Logger
}

// Pipeline runs collection batches. A process-wide mutex serializes
// them, so a second request waits instead of running concurrently.
type Pipeline struct {
	mu sync.Mutex

	cfg        *config.Config
	sources    []ingest.Source
	store      *archive.Store
	registrar  *incident.Service
	resolver   *geocode.Resolver
	builder    *sicu.Builder
	translator translate.Translator
	metrics    *observability.Metrics
	readiness  *observability.Readiness
	clock      clockwork.Clock
	loc        *time.Location
	logger     *zerolog.Logger

	webLast    map[string]time.Time
	gazetteers map[string]*gazetteer.Gazetteer
}

func New(opts Options) *Pipeline {
	if opts.Translator == nil {
		opts.Translator = translate.Excerpt{}
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Readiness == nil {
		opts.Readiness = &observability.Readiness{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &Pipeline{
		cfg:        opts.Config,
		sources:    opts.Sources,
		store:      opts.Store,
		registrar:  opts.Registrar,
		resolver:   opts.Resolver,
		builder:    opts.Builder,
		translator: opts.Translator,
		metrics:    opts.Metrics,
		readiness:  opts.Readiness,
		clock:      opts.Clock,
		loc:        opts.Location,
		logger:     opts.Logger,
		webLast:    make(map[string]time.Time),
		gazetteers: make(map[string]*gazetteer.Gazetteer),
	}
}

// Run executes one batch: fetch, archive, then a day build per target
// country. Per-country failures are logged and skipped so one bad
// country cannot sink the rest of the batch.
func (p *Pipeline) Run(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	batchID := uuid.New().String()
	logger := p.logger.With().Str("batch", batchID).Logger()
	started := p.clock.Now()

	day := strings.TrimSpace(req.Day)
	if day == "" {
		day = opday.ForTime(p.loc, p.clock.Now())
	} else if _, _, err := opday.Bounds(p.loc, day); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadDay, day, err)
	}

	res := &BatchResult{BatchID: batchID, Day: day}

	feeds := p.fetchAll(ctx, &logger)
	res.Fetched = len(feeds)
	p.metrics.FeedsFetched.Add(float64(len(feeds)))

	touched, archived := p.archiveFeeds(&logger, feeds)
	res.Archived = archived
	p.metrics.EntriesArchived.Add(float64(archived))

	for _, slug := range p.buildTargets(req.Pais, touched) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		summary, err := p.runCountryDay(ctx, &logger, slug, day)
		if err != nil {
			logger.Error().Err(err).Str("pais", slug).Str("day", day).Msg("day build failed")
			continue
		}
		res.Countries = append(res.Countries, *summary)
	}

	took := p.clock.Now().Sub(started)
	p.metrics.BatchesRun.Inc()
	p.metrics.BatchDuration.Observe(took.Seconds())
	p.metrics.LastBatch.Set(float64(p.clock.Now().Unix()))
	p.readiness.SetReady()
	logger.Info().
		Int("fetched", res.Fetched).
		Int("archived", res.Archived).
		Int("countries", len(res.Countries)).
		Dur("took", took).
		Msg("batch complete")
	return res, nil
}

// RunLoop runs an initial batch and then one batch per interval until
// the context is cancelled.
func (p *Pipeline) RunLoop(ctx context.Context, interval time.Duration) {
	if _, err := p.Run(ctx, BatchRequest{}); err != nil && ctx.Err() == nil {
		p.logger.Error().Err(err).Msg("batch failed")
	}

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("collector stopping")
			return
		case <-ticker.Chan():
			if _, err := p.Run(ctx, BatchRequest{}); err != nil && ctx.Err() == nil {
				p.logger.Error().Err(err).Msg("batch failed")
			}
		}
	}
}

// IngestText appends a raw block to pais's current day archive and runs
// the day build for that country alone. No sources are fetched.
func (p *Pipeline) IngestText(ctx context.Context, pais, text string) (*CountrySummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.TrimSpace(pais) == "" {
		pais = p.cfg.DefaultCountry
	}
	slug := textnorm.SlugCountry(pais)
	body := textnorm.RemoveNoiseLines(text)
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyFeed
	}

	now := p.clock.Now().In(p.loc)
	day := opday.ForTime(p.loc, now)
	logger := p.logger.With().Str("pais", slug).Str("day", day).Logger()

	path, err := p.store.AppendEntry(slug, day, "API", now.Format(headerLayout), body)
	if err != nil {
		return nil, err
	}
	if err := p.store.Reorder(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to reorder day file")
	}
	p.metrics.EntriesArchived.Inc()

	return p.runCountryDay(ctx, &logger, slug, day)
}

// RegisterReport registers a pre-categorized report straight into the
// ledger, bypassing the archive.
func (p *Pipeline) RegisterReport(ctx context.Context, pais, text string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.TrimSpace(pais) == "" {
		pais = p.cfg.DefaultCountry
	}
	pais = textnorm.Capitalize(textnorm.SlugCountry(pais))
	inserted, err := p.registrar.RegisterFromText(ctx, pais, text, "", true, pais)
	if err != nil {
		return inserted, err
	}
	p.metrics.IncidentsRegistered.Add(float64(inserted))
	return inserted, nil
}

// ResolvePending re-runs coordinate resolution over every ledger row
// still missing them, using pais as the country fallback.
func (p *Pipeline) ResolvePending(ctx context.Context, pais string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hint := strings.TrimSpace(pais)
	if hint == "" {
		hint = p.cfg.DefaultCountry
	}
	hint = textnorm.Capitalize(textnorm.SlugCountry(hint))

	jobID := uuid.New().String()
	logger := p.logger.With().Str("job", jobID).Logger()
	logger.Info().Str("pais", hint).Msg("resolving pending incidents")
	resolved, err := p.registrar.ResolvePending(ctx, hint)
	if err != nil {
		return resolved, err
	}
	p.metrics.IncidentsResolved.Add(float64(resolved))
	logger.Info().Int("resolved", resolved).Msg("resolution finished")
	return resolved, nil
}

type fetchOutcome struct {
	feeds []models.RawFeed
	err   error
}

// fetchAll queries every source concurrently and collects the results
// in source order. Web sources still cooling down are skipped, and a
// failed source contributes whatever partial results it returned.
func (p *Pipeline) fetchAll(ctx context.Context, logger *zerolog.Logger) []models.RawFeed {
	if len(p.sources) == 0 {
		return nil
	}

	now := p.clock.Now()
	active := make([]ingest.Source, 0, len(p.sources))
	for _, src := range p.sources {
		if _, ok := src.(*ingest.WebSource); ok {
			if last, seen := p.webLast[src.Name()]; seen && now.Sub(last) < webMinInterval {
				logger.Debug().Str("source", src.Name()).Msg("web source cooling down")
				continue
			}
		}
		active = append(active, src)
	}

	outcomes := make([]fetchOutcome, len(active))
	var wg sync.WaitGroup
	for i, src := range active {
		wg.Add(1)
		go func(i int, src ingest.Source) {
			defer wg.Done()
			feeds, err := src.Fetch(ctx)
			outcomes[i] = fetchOutcome{feeds: feeds, err: err}
		}(i, src)
	}
	wg.Wait()

	var all []models.RawFeed
	for i, src := range active {
		out := outcomes[i]
		if out.err != nil {
			p.metrics.FetchErrors.WithLabelValues(src.Name()).Inc()
			logger.Warn().Err(out.err).Str("source", src.Name()).Msg("fetch failed")
		} else if _, ok := src.(*ingest.WebSource); ok {
			p.webLast[src.Name()] = now
		}
		all = append(all, out.feeds...)
	}
	return all
}

// archiveFeeds appends every usable feed to its country day file and
// reorders each touched file once. Returns the touched country slugs
// and the number of archived entries.
func (p *Pipeline) archiveFeeds(logger *zerolog.Logger, feeds []models.RawFeed) (map[string]bool, int) {
	touched := make(map[string]bool)
	paths := make(map[string]bool)
	archived := 0
	for _, feed := range feeds {
		if feed.FetchedAt.Before(minCollectDate) {
			logger.Debug().Str("source", feed.Source).Time("fetched_at", feed.FetchedAt).Msg("entry predates collection window")
			continue
		}
		body := textnorm.RemoveNoiseLines(feed.Text)
		if strings.TrimSpace(body) == "" {
			continue
		}
		pais := feed.Pais
		if strings.TrimSpace(pais) == "" {
			pais = p.cfg.DefaultCountry
		}
		slug := textnorm.SlugCountry(pais)
		local := feed.FetchedAt.In(p.loc)
		day := opday.ForTime(p.loc, feed.FetchedAt)

		path, err := p.store.AppendEntry(slug, day, feed.Channel, local.Format(headerLayout), body)
		if err != nil {
			logger.Warn().Err(err).Str("pais", slug).Str("day", day).Msg("failed to archive entry")
			continue
		}
		archived++
		touched[slug] = true
		paths[path] = true
	}
	for path := range paths {
		if err := p.store.Reorder(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("failed to reorder day file")
		}
	}
	return touched, archived
}

// buildTargets returns the country slugs to build, in a stable order:
// the configured defaults first, then any extra country touched by this
// batch. An explicit pais narrows the build to that country.
func (p *Pipeline) buildTargets(pais string, touched map[string]bool) []string {
	if strings.TrimSpace(pais) != "" {
		return []string{textnorm.SlugCountry(pais)}
	}

	seen := make(map[string]bool)
	targets := make([]string, 0, len(p.cfg.DefaultCountries)+len(touched))
	for _, name := range p.cfg.DefaultCountries {
		slug := textnorm.SlugCountry(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		targets = append(targets, slug)
	}
	extras := make([]string, 0, len(touched))
	for slug := range touched {
		if !seen[slug] {
			extras = append(extras, slug)
		}
	}
	sort.Strings(extras)
	return append(targets, extras...)
}

// runCountryDay rebuilds one country's day: re-register the archived
// text into the ledger, resolve pending coordinates, rebuild the merged
// feed CSV and regenerate the deduplicated SICU artifacts.
func (p *Pipeline) runCountryDay(ctx context.Context, logger *zerolog.Logger, slug, day string) (*CountrySummary, error) {
	pais := textnorm.Capitalize(slug)
	summary := &CountrySummary{Pais: pais, Day: day}

	text, err := p.store.ReadDay(slug, day)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		logger.Debug().Str("pais", slug).Str("day", day).Msg("no archived feed for day")
		return summary, nil
	}

	entries := parser.ParseFeed(text)
	summary.Parsed = len(entries)
	p.metrics.EntriesParsed.Add(float64(len(entries)))

	// Re-registering the whole day file is idempotent: the ledger
	// skips tuples it has already seen.
	fuente := fmt.Sprintf("TXT %s %s", strings.ToUpper(slug), day)
	items := parser.ParseReport(text, fuente)
	candidates := make([]models.IncidentCandidate, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Descripcion) == "" {
			continue
		}
		candidates = append(candidates, models.IncidentCandidate{
			Categoria:   item.Categoria,
			Descripcion: item.Descripcion,
			Place:       item.Place,
			Fuente:      item.Fuente,
		})
	}
	p.metrics.CandidatesBuilt.Add(float64(len(candidates)))

	inserted, err := p.registrar.RegisterMany(ctx, pais, candidates, false, "")
	if err != nil {
		logger.Warn().Err(err).Str("pais", pais).Msg("failed to register day report")
	}
	summary.Inserted = inserted
	summary.Duplicates = len(candidates) - inserted
	p.metrics.IncidentsRegistered.Add(float64(inserted))
	if summary.Duplicates > 0 {
		p.metrics.DuplicatesSkipped.Add(float64(summary.Duplicates))
	}

	resolved, err := p.registrar.ResolvePending(ctx, pais)
	if err != nil {
		logger.Warn().Err(err).Str("pais", pais).Msg("failed to resolve pending incidents")
	}
	summary.Resolved = resolved
	p.metrics.IncidentsResolved.Add(float64(resolved))

	gaz := p.gazetteerFor(slug)

	rows := p.builder.FromFeed(pais, day, text, gaz)
	p.metrics.RowsBuilt.Add(float64(len(rows)))

	feedCSV := p.feedCSVPath(slug, day)
	merged := sicu.MergeRows(p.readRows(logger, feedCSV), rows)
	if err := p.writeArtifact(feedCSV, func(w io.Writer) error {
		return export.WriteFeedCSV(w, merged)
	}); err != nil {
		logger.Warn().Err(err).Str("path", feedCSV).Msg("failed to write feed csv")
	} else {
		summary.Artifacts = append(summary.Artifacts, feedCSV)
	}

	filtered := sicu.Filter(merged)
	deduped := sicu.Deduplicate(filtered)
	summary.Rows = len(deduped)
	summary.Removed = len(filtered) - len(deduped)
	if summary.Removed > 0 {
		p.metrics.RowsDeduplicated.Add(float64(summary.Removed))
	}
	sicu.SortRows(deduped)
	export.FillCoordinates(deduped, gaz, slug)

	for _, artifact := range []struct {
		path  string
		write func(io.Writer) error
	}{
		{p.sicuCSVPath(slug, day), func(w io.Writer) error { return export.WriteSICUCSV(w, deduped) }},
		{p.sicuTXTPath(slug, day), func(w io.Writer) error { return export.WriteGroupedTXT(w, deduped) }},
		{p.reportPath(slug, day), func(w io.Writer) error {
			return export.WriteReportTXT(w, pais, day, deduped, p.clock.Now().In(p.loc))
		}},
	} {
		if err := p.writeArtifact(artifact.path, artifact.write); err != nil {
			logger.Warn().Err(err).Str("path", artifact.path).Msg("failed to write artifact")
			continue
		}
		summary.Artifacts = append(summary.Artifacts, artifact.path)
	}

	logger.Info().
		Str("pais", pais).
		Str("day", day).
		Int("entries", summary.Parsed).
		Int("inserted", summary.Inserted).
		Int("resolved", summary.Resolved).
		Int("rows", summary.Rows).
		Msg("day build complete")
	return summary, nil
}

func (p *Pipeline) gazetteerFor(slug string) *gazetteer.Gazetteer {
	if g, ok := p.gazetteers[slug]; ok {
		return g
	}
	g, err := gazetteer.Load(p.cfg.GazetteerDir, slug)
	if err != nil {
		p.logger.Warn().Err(err).Str("pais", slug).Msg("failed to load gazetteer")
		g = gazetteer.New(nil)
	}
	p.gazetteers[slug] = g
	return g
}

// readRows loads an existing CSV so fresh rows merge into it. A missing
// or unreadable file just means there is nothing to merge.
func (p *Pipeline) readRows(logger *zerolog.Logger, path string) []models.SICURow {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("failed to open existing csv")
		}
		return nil
	}
	defer f.Close()

	rows, err := export.ReadSICUCSV(f)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to read existing csv")
		return nil
	}
	return rows
}

func (p *Pipeline) writeArtifact(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}

// Artifact kinds written by each country day build.
const (
	ArtifactFeedCSV = "feed_csv"
	ArtifactSICUCSV = "sicu_csv"
	ArtifactSICUTXT = "sicu_txt"
	ArtifactReport  = "report"
)

// ArtifactPath returns the on-disk location of a day build artifact.
// The file exists only once a batch has built that country and day.
func (p *Pipeline) ArtifactPath(kind, pais, day string) (string, error) {
	if strings.TrimSpace(pais) == "" {
		pais = p.cfg.DefaultCountry
	}
	slug := textnorm.SlugCountry(pais)

	day = strings.TrimSpace(day)
	if day == "" {
		day = opday.ForTime(p.loc, p.clock.Now())
	} else if _, _, err := opday.Bounds(p.loc, day); err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrBadDay, day, err)
	}

	switch kind {
	case ArtifactFeedCSV:
		return p.feedCSVPath(slug, day), nil
	case ArtifactSICUCSV:
		return p.sicuCSVPath(slug, day), nil
	case ArtifactSICUTXT:
		return p.sicuTXTPath(slug, day), nil
	case ArtifactReport:
		return p.reportPath(slug, day), nil
	}
	return "", fmt.Errorf("unknown artifact kind %q", kind)
}

func (p *Pipeline) feedCSVPath(slug, day string) string {
	return filepath.Join(p.cfg.DataDir, "incidentes", slug, fmt.Sprintf("incidentes_%s_%s.csv", slug, day))
}

func (p *Pipeline) sicuCSVPath(slug, day string) string {
	return filepath.Join(p.cfg.DataDir, "sicu", slug, fmt.Sprintf("%s-%s_incidentes_SICU.csv", slug, day))
}

func (p *Pipeline) sicuTXTPath(slug, day string) string {
	return filepath.Join(p.cfg.DataDir, "sicu", slug, fmt.Sprintf("%s-%s_incidentes_SICU.txt", slug, day))
}

func (p *Pipeline) reportPath(slug, day string) string {
	return filepath.Join(p.cfg.DataDir, "sicu_reports", slug, fmt.Sprintf("%s-%s_SICU_REPORT.txt", slug, day))
}
