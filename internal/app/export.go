package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"metric-anomaly-alerts/internal/storage"
)

// Export renders one metric's daily history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Metric == "" {
		return errors.New("--metric is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.AddDate(0, 0, -a.Config.Detection.LookbackDays)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	points, err := store.ListMetricValues(ctx, opts.Metric, from, to)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Str("metric", opts.Metric).Msg("no values found for export window")
		return nil
	}

	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().
		Str("metric", opts.Metric).
		Int("total", len(points)).
		Int("exported", len(downsampled)).
		Msg("exporting metric history")

	if opts.CSVPath != "" {
		if err := writePointsCSV(opts.CSVPath, opts.Metric, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePointsPNG(opts.PNGPath, opts.Metric, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsamplePoints(points []storage.MetricPoint, max int) []storage.MetricPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]storage.MetricPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writePointsCSV(path, metric string, points []storage.MetricPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"metric_name", "metric_date", "value"}); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			metric,
			point.Date.UTC().Format("2006-01-02"),
			point.Value.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePointsPNG(path, metric string, points []storage.MetricPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, point := range points {
		x[i] = point.Date
		values[i] = point.Value.InexactFloat64()
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: metric,
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.3f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    metric,
				XValues: x,
				YValues: values,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
