// Package report renders analysis reports as markdown, JSON and PNG charts
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Output file names inside the report directory
const (
	MarkdownFile    = "report.md"
	JSONFile        = "report.json"
	HTMLFile        = "report.html"
	EquityChart     = "equity.png"
	DrawdownChart   = "drawdown.png"
	ExposureChart   = "exposure.png"
	VolatilityChart = "volatility.png"
)

// Service writes reports to a directory
type Service struct {
	outputDir string
	charts    bool
	json      bool
	html      bool
	maWindow  int
	logger    *common.Logger
}

var _ interfaces.ReportWriter = (*Service)(nil)

// NewService creates a new report service
func NewService(cfg common.OutputConfig, maWindow int, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		outputDir: cfg.Dir,
		charts:    cfg.Charts,
		json:      cfg.JSON,
		html:      cfg.HTML,
		maWindow:  maWindow,
		logger:    logger,
	}
}

// Write renders the charts, then the markdown, HTML and JSON documents. A chart
// that cannot be drawn (too few points) is logged and left out; the report
// lists only the charts that were written.
func (s *Service) Write(report *models.Report) ([]string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	report.Charts = nil
	if s.charts {
		for _, c := range s.chartsFor(report) {
			data, err := c.render()
			if err != nil {
				s.logger.Warn().Str("chart", c.name).Err(err).Msg("Chart skipped")
				continue
			}
			path, err := s.writeFile(c.name, data)
			if err != nil {
				return written, err
			}
			report.Charts = append(report.Charts, c.name)
			written = append(written, path)
		}
	}

	md := FormatMarkdown(report)
	path, err := s.writeFile(MarkdownFile, []byte(md))
	if err != nil {
		return written, err
	}
	written = append(written, path)

	if s.html {
		page, err := RenderHTML("Portfolio Report", md)
		if err != nil {
			return written, err
		}
		path, err := s.writeFile(HTMLFile, page)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if s.json {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return written, fmt.Errorf("marshal report: %w", err)
		}
		path, err := s.writeFile(JSONFile, data)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	s.logger.Info().
		Str("dir", s.outputDir).
		Int("files", len(written)).
		Int("charts", len(report.Charts)).
		Msg("Report written")
	return written, nil
}

type chartJob struct {
	name   string
	render func() ([]byte, error)
}

func (s *Service) chartsFor(report *models.Report) []chartJob {
	portfolio := report.Returns.GrowthOfOne()
	benchmark := BenchmarkGrowth(report.Aligned)

	return []chartJob{
		{EquityChart, func() ([]byte, error) { return RenderEquityChart(portfolio, benchmark, s.maWindow) }},
		{DrawdownChart, func() ([]byte, error) { return RenderDrawdownChart(portfolio) }},
		{ExposureChart, func() ([]byte, error) { return RenderExposureHeatmap(report.Valuations) }},
		{VolatilityChart, func() ([]byte, error) { return RenderVolatilityChart(report.RollingVol) }},
	}
}

// BenchmarkGrowth compounds the benchmark side of aligned periods from 1.0.
func BenchmarkGrowth(aligned []models.AlignedReturn) []models.PricePoint {
	series := make(models.ReturnSeries, len(aligned))
	for i, a := range aligned {
		series[i] = models.ReturnPoint{Start: a.Start, Date: a.Date, Return: a.Benchmark}
	}
	return series.GrowthOfOne()
}

// writeFile writes via a uniquely named temp file and rename so readers
// never see a partial report and concurrent runs do not share a temp file.
func (s *Service) writeFile(name string, data []byte) (string, error) {
	path := filepath.Join(s.outputDir, name)
	tmpFile, err := os.CreateTemp(s.outputDir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	// CreateTemp uses 0600
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
