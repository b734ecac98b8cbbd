package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mediaintel/internal/adapter/events"
	"mediaintel/internal/adapter/storage"
	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
	"mediaintel/internal/service/analysis"
	"mediaintel/internal/service/ingest"
)

const uploadCSV = `Date,Headline,Platform,Sentiment,Location,Engagements,Media Type,Source,Latitude,Longitude
2024-01-01,Launch event draws crowds,Twitter,positive,Jakarta,100,Video,Kompas,-6.2,106.8
2024-01-01,Launch pricing criticised,Instagram,negative,Bandung,50,Image,Detik,,
2024-01-02,Launch event recap,Twitter,neutral,Jakarta,30,Text,Kompas,,
2024-01-04,Crowds return for second event,Facebook,positive,Surabaya,200,Video,Tempo,-7.25,112.75
`

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

type stubNarrator struct {
	got *dashboard.Dashboard
}

func (n *stubNarrator) Summarize(_ context.Context, d *dashboard.Dashboard) (string, error) {
	n.got = d
	return "Coverage was upbeat.", nil
}

func newTestService(t *testing.T, narrator Narrator, config ServiceConfig) (*Service, *recordingPublisher) {
	t.Helper()

	store, err := storage.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pub := &recordingPublisher{}
	svc, err := NewService(
		store,
		ingest.NewParser(ingest.ParserConfig{}),
		analysis.NewBuilder(analysis.DefaultCatalog()),
		narrator,
		pub,
		config,
	)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc, pub
}

func TestUploadAndDashboard(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, nil, ServiceConfig{EventsTopic: "dataset"})

	res, err := svc.Upload(ctx, "/tmp/exports/mentions.csv", strings.NewReader(uploadCSV))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if res.Dataset.ID == "" || res.Dataset.Name != "mentions.csv" || res.Dataset.RowCount != 4 {
		t.Fatalf("unexpected dataset info: %+v", res.Dataset)
	}
	if res.Report.RowsKept != 4 {
		t.Errorf("unexpected report: %+v", res.Report)
	}

	if len(pub.subjects) != 1 || pub.subjects[0] != "dataset.uploaded" {
		t.Fatalf("expected one uploaded event, got %v", pub.subjects)
	}
	var e events.DatasetEvent
	if err := json.Unmarshal(pub.payloads[0], &e); err != nil || e.DatasetID != res.Dataset.ID || e.Rows != 4 {
		t.Errorf("unexpected event payload %s (%v)", pub.payloads[0], err)
	}

	d, err := svc.Dashboard(ctx, res.Dataset.ID, mention.Filter{Platforms: []string{"twitter"}})
	if err != nil {
		t.Fatalf("Dashboard error: %v", err)
	}
	if d.Summary.TotalMentions != 2 {
		t.Errorf("expected 2 twitter mentions, got %d", d.Summary.TotalMentions)
	}
	if _, ok := d.Chart("geo_map"); !ok {
		t.Error("expected geo chart for a dataset with coordinates")
	}

	infos, err := svc.List(ctx)
	if err != nil || len(infos) != 1 {
		t.Fatalf("List = %v, %v", infos, err)
	}
}

func TestDashboardReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, ServiceConfig{CacheSize: 1})

	first, err := svc.Upload(ctx, "a.csv", strings.NewReader(uploadCSV))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if _, err := svc.Upload(ctx, "b.csv", strings.NewReader(uploadCSV)); err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	info, err := svc.Get(ctx, first.Dataset.ID)
	if err != nil {
		t.Fatalf("Get after eviction error: %v", err)
	}
	if info.Name != "a.csv" || !info.HasColumn(mention.ColumnLatitude) {
		t.Errorf("unexpected info from storage: %+v", info)
	}
}

func TestPageChartAndExport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, ServiceConfig{})

	res, err := svc.Upload(ctx, "a.csv", strings.NewReader(uploadCSV))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	id := res.Dataset.ID

	page, err := svc.Page(ctx, id, "source_performance", mention.Filter{})
	if err != nil {
		t.Fatalf("Page error: %v", err)
	}
	if len(page.Charts) != 2 {
		t.Errorf("expected 2 source charts, got %d", len(page.Charts))
	}
	if _, err := svc.Page(ctx, id, "nope", mention.Filter{}); !errors.Is(err, dashboard.ErrUnknownPage) {
		t.Errorf("expected ErrUnknownPage, got %v", err)
	}

	var png bytes.Buffer
	if err := svc.ChartPNG(ctx, id, "platform_engagement", mention.Filter{}, &png); err != nil {
		t.Fatalf("ChartPNG error: %v", err)
	}
	if !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}

	var xlsx bytes.Buffer
	if err := svc.Export(ctx, id, mention.Filter{}, &xlsx); err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if !bytes.HasPrefix(xlsx.Bytes(), []byte("PK")) {
		t.Error("expected a zip-based workbook")
	}

	if len(svc.Pages()) != 10 || len(svc.Recommendations()) == 0 {
		t.Error("expected catalog pages and recommendations")
	}
}

func TestNarrative(t *testing.T) {
	ctx := context.Background()

	disabled, _ := newTestService(t, nil, ServiceConfig{})
	res, err := disabled.Upload(ctx, "a.csv", strings.NewReader(uploadCSV))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if _, err := disabled.Narrative(ctx, res.Dataset.ID, mention.Filter{}); !errors.Is(err, dashboard.ErrNarrativeDisabled) {
		t.Fatalf("expected ErrNarrativeDisabled, got %v", err)
	}

	narrator := &stubNarrator{}
	svc, _ := newTestService(t, narrator, ServiceConfig{})
	res, err = svc.Upload(ctx, "a.csv", strings.NewReader(uploadCSV))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	text, err := svc.Narrative(ctx, res.Dataset.ID, mention.Filter{Sentiments: []string{"positive"}})
	if err != nil {
		t.Fatalf("Narrative error: %v", err)
	}
	if text != "Coverage was upbeat." || narrator.got == nil || narrator.got.Summary.TotalMentions != 2 {
		t.Errorf("unexpected narrative %q for %+v", text, narrator.got)
	}
}

func TestDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, nil, ServiceConfig{RetentionMaxAge: 24 * time.Hour})

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	old, err := svc.Upload(ctx, "old.csv", strings.NewReader(uploadCSV))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	clock = clock.Add(48 * time.Hour)
	kept, err := svc.Upload(ctx, "new.csv", strings.NewReader(uploadCSV))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	n, err := svc.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged dataset, got %d", n)
	}
	if _, err := svc.Get(ctx, old.Dataset.ID); !errors.Is(err, mention.ErrNotFound) {
		t.Errorf("expected purged dataset to be gone from cache and store, got %v", err)
	}

	if err := svc.Delete(ctx, kept.Dataset.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := svc.Delete(ctx, kept.Dataset.ID); !errors.Is(err, mention.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	want := []string{"dataset.uploaded", "dataset.uploaded", "dataset.purged", "dataset.deleted"}
	if strings.Join(pub.subjects, " ") != strings.Join(want, " ") {
		t.Errorf("expected events %v, got %v", want, pub.subjects)
	}
}

func TestUploadRejectsUnusableFile(t *testing.T) {
	svc, pub := newTestService(t, nil, ServiceConfig{})

	_, err := svc.Upload(context.Background(), "a.csv", strings.NewReader("Platform\nTwitter\n"))
	if !errors.Is(err, ingest.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if len(pub.subjects) != 0 {
		t.Errorf("expected no events, got %v", pub.subjects)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc, _ := newTestService(t, nil, ServiceConfig{RetentionMaxAge: time.Hour, RetentionSchedule: "every tuesday"})
	if err := svc.Start(); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}

	ok, _ := newTestService(t, nil, ServiceConfig{RetentionMaxAge: time.Hour, RetentionSchedule: "@hourly"})
	if err := ok.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	ok.Stop()
}
