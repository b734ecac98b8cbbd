// internal/service/dashboard/service.go

package dashboard

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"mediaintel/internal/adapter/events"
	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
	"mediaintel/internal/service/analysis"
	"mediaintel/internal/service/ingest"
	"mediaintel/internal/service/render"
)

// Narrator writes a narrative summary of a dashboard
type Narrator interface {
	Summarize(ctx context.Context, d *dashboard.Dashboard) (string, error)
}

// ServiceConfig contains configuration for the dashboard service
type ServiceConfig struct {
	EventsTopic       string
	CacheSize         int
	RetentionMaxAge   time.Duration
	RetentionSchedule string
	PurgeTimeout      time.Duration
}

// Service implements the dashboard.Service interface
type Service struct {
	store    mention.Store
	parser   *ingest.Parser
	builder  *analysis.Builder
	narrator Narrator
	eventBus events.Publisher
	cache    *lru.Cache[string, *cachedDataset]
	config   ServiceConfig
	cron     *cron.Cron
	now      func() time.Time
}

var _ dashboard.Service = (*Service)(nil)

type cachedDataset struct {
	info  mention.DatasetInfo
	frame *analysis.Frame
}

// NewService creates a new dashboard service. A nil narrator disables
// narrative summaries; a nil event bus drops events.
func NewService(
	store mention.Store,
	parser *ingest.Parser,
	builder *analysis.Builder,
	narrator Narrator,
	eventBus events.Publisher,
	config ServiceConfig,
) (*Service, error) {
	if config.CacheSize <= 0 {
		config.CacheSize = 16
	}
	if config.EventsTopic == "" {
		config.EventsTopic = "dataset"
	}
	if config.PurgeTimeout <= 0 {
		config.PurgeTimeout = time.Minute
	}
	if eventBus == nil {
		eventBus = events.NoopPublisher{}
	}

	cache, err := lru.New[string, *cachedDataset](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("error creating dataset cache: %w", err)
	}

	return &Service{
		store:    store,
		parser:   parser,
		builder:  builder,
		narrator: narrator,
		eventBus: eventBus,
		cache:    cache,
		config:   config,
		now:      time.Now,
	}, nil
}

// Start schedules the retention purge. It does nothing when retention is off.
func (s *Service) Start() error {
	if s.config.RetentionMaxAge <= 0 || s.config.RetentionSchedule == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(s.config.RetentionSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.PurgeTimeout)
		defer cancel()

		if _, err := s.Purge(ctx); err != nil {
			log.Printf("Error purging datasets: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling purge %q: %w", s.config.RetentionSchedule, err)
	}

	s.cron = c
	c.Start()
	log.Printf("Retention purge scheduled (%s, max age %s)", s.config.RetentionSchedule, s.config.RetentionMaxAge)
	return nil
}

// Stop waits for a running purge and stops the scheduler
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Upload parses, cleans and stores an uploaded export
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (*dashboard.UploadResult, error) {
	mentions, report, err := s.parser.Parse(name, r)
	if err != nil {
		return nil, err
	}

	summary := analysis.Summarize(mentions)
	ds := mention.Dataset{
		DatasetInfo: mention.DatasetInfo{
			ID:         uuid.New().String(),
			Name:       filepath.Base(name),
			Format:     report.Format,
			RowCount:   len(mentions),
			Columns:    report.Columns,
			From:       summary.From,
			To:         summary.To,
			UploadedAt: s.now().UTC(),
		},
		Mentions: mentions,
	}

	if err := s.store.SaveDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("error saving dataset: %w", err)
	}

	s.cache.Add(ds.ID, &cachedDataset{info: ds.DatasetInfo, frame: analysis.NewFrame(mentions)})

	log.WithFields(log.Fields{
		"dataset": ds.ID,
		"name":    ds.Name,
		"rows":    ds.RowCount,
	}).Info("Dataset uploaded")

	s.publish(events.DatasetEvent{Event: events.TypeUploaded, DatasetID: ds.ID, Name: ds.Name, Rows: ds.RowCount})

	return &dashboard.UploadResult{Dataset: ds.DatasetInfo, Report: report}, nil
}

// List returns every stored dataset, newest first
func (s *Service) List(ctx context.Context) ([]mention.DatasetInfo, error) {
	infos, err := s.store.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing datasets: %w", err)
	}
	return infos, nil
}

// Get returns dataset metadata
func (s *Service) Get(ctx context.Context, id string) (*mention.DatasetInfo, error) {
	cached, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	info := cached.info
	return &info, nil
}

// Delete removes a dataset
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDataset(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)

	log.WithField("dataset", id).Info("Dataset deleted")
	s.publish(events.DatasetEvent{Event: events.TypeDeleted, DatasetID: id})
	return nil
}

// Purge removes datasets older than the retention age
func (s *Service) Purge(ctx context.Context) (int, error) {
	if s.config.RetentionMaxAge <= 0 {
		return 0, nil
	}

	ids, err := s.store.DeleteOlderThan(ctx, s.now().Add(-s.config.RetentionMaxAge))
	if err != nil {
		return 0, fmt.Errorf("error purging datasets: %w", err)
	}

	for _, id := range ids {
		s.cache.Remove(id)
		s.publish(events.DatasetEvent{Event: events.TypePurged, DatasetID: id})
	}
	if len(ids) > 0 {
		log.Printf("Purged %d expired datasets", len(ids))
	}

	return len(ids), nil
}

// Dashboard builds every chart of the catalog for the filtered frame
func (s *Service) Dashboard(ctx context.Context, id string, filter mention.Filter) (*dashboard.Dashboard, error) {
	cached, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(cached.info, cached.frame, filter)
}

// Page builds only the charts shown on one navigation page
func (s *Service) Page(ctx context.Context, id, page string, filter mention.Filter) (*dashboard.Dashboard, error) {
	cached, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.builder.BuildPage(cached.info, cached.frame, filter, page)
}

// ChartPNG renders one chart as a PNG image
func (s *Service) ChartPNG(ctx context.Context, id, chartID string, filter mention.Filter, w io.Writer) error {
	cached, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	chart, err := s.builder.BuildChart(cached.info, cached.frame, filter, chartID)
	if err != nil {
		return err
	}

	return render.PNG(*chart, w, render.DefaultWidth, render.DefaultHeight)
}

// Export writes the filtered rows and insights as an xlsx workbook
func (s *Service) Export(ctx context.Context, id string, filter mention.Filter, w io.Writer) error {
	cached, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	d, err := s.builder.Build(cached.info, cached.frame, filter)
	if err != nil {
		return err
	}
	frame, err := cached.frame.Apply(filter)
	if err != nil {
		return err
	}

	return render.Workbook(d, frame.Mentions(), w)
}

// Narrative asks a language model to summarize the insights
func (s *Service) Narrative(ctx context.Context, id string, filter mention.Filter) (string, error) {
	if s.narrator == nil {
		return "", dashboard.ErrNarrativeDisabled
	}

	d, err := s.Dashboard(ctx, id, filter)
	if err != nil {
		return "", err
	}

	text, err := s.narrator.Summarize(ctx, d)
	if err != nil {
		return "", fmt.Errorf("error generating narrative: %w", err)
	}
	return text, nil
}

// Pages returns the navigation pages
func (s *Service) Pages() []dashboard.Page {
	return append([]dashboard.Page(nil), s.builder.Catalog().Pages...)
}

// Recommendations returns the static recommendations block
func (s *Service) Recommendations() []string {
	return append([]string(nil), s.builder.Catalog().Recommendations...)
}

// load returns a dataset from the cache, reading it from storage on a miss
func (s *Service) load(ctx context.Context, id string) (*cachedDataset, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached, nil
	}

	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	cached := &cachedDataset{info: ds.DatasetInfo, frame: analysis.NewFrame(ds.Mentions)}
	s.cache.Add(id, cached)
	return cached, nil
}

// publish sends a dataset event, logging failures
func (s *Service) publish(e events.DatasetEvent) {
	if err := events.PublishDataset(s.eventBus, s.config.EventsTopic, e); err != nil {
		log.Printf("Error publishing dataset %s event: %v", e.Event, err)
	}
}
