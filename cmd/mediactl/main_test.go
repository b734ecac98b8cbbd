package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `Date,Headline,Platform,Sentiment,Location,Engagements,Media Type,Source
2024-06-01,Festival tickets sell out,Twitter,positive,Bali,300,Video,Kompas
2024-06-01,Festival traffic warnings,Facebook,negative,Bali,80,Text,Detik
2024-06-03,Festival recap and highlights,Twitter,positive,Lombok,150,Image,Tempo
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "festival.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestReport(t *testing.T) {
	path := writeSample(t)
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "out.xlsx")
	pngDir := filepath.Join(dir, "charts")

	var out bytes.Buffer
	err := run([]string{"report", "-file", path, "-platform", "twitter", "-xlsx", xlsx, "-png", pngDir}, &out)
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out.String())
	}

	got := out.String()
	for _, want := range []string{"2 of 3 rows", "Insights", "Recommendations", "Workbook written"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q:\n%s", want, got)
		}
	}

	if _, err := os.Stat(xlsx); err != nil {
		t.Errorf("expected workbook: %v", err)
	}
	charts, _ := filepath.Glob(filepath.Join(pngDir, "*.png"))
	if len(charts) == 0 {
		t.Error("expected chart PNGs")
	}
}

func TestReportPage(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"report", "-file", writeSample(t), "-page", "Source Performance"}, &out); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if strings.Contains(out.String(), "Sentiment Breakdown") {
		t.Errorf("expected only source charts:\n%s", out.String())
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"serve"}},
		{"missing file", []string{"report"}},
		{"bad date", []string{"report", "-file", "x.csv", "-from", "June 1"}},
		{"unreadable file", []string{"report", "-file", filepath.Join(t.TempDir(), "missing.csv")}},
		{"unknown page", []string{"report", "-file", writeSample(t), "-page", "nowhere"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tt.args, &out); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPages(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"pages"}, &out); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(out.String(), "keyword_trends") {
		t.Errorf("expected page list:\n%s", out.String())
	}
}
