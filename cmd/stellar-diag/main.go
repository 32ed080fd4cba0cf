package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/analysis"
	"github.com/diiviikk5/stellar-v1k/internal/forecast"
	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/kpi"
	"github.com/diiviikk5/stellar-v1k/internal/orbit"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

func main() {
	satID := flag.String("sat", "G01", "satellite ID")
	sigName := flag.String("signal", "clock", "clock, radial, along or cross")
	n := flag.Int("n", analysis.DefaultResidualCount, "residual sample size")
	bins := flag.Int("bins", 12, "histogram bins")
	seed := flag.Uint64("seed", 0, "fixed RNG seed (0 = random)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	src := stats.Default()
	if *seed != 0 {
		src = stats.NewSeeded(*seed)
	}

	sig, err := forecast.ParseSignal(*sigName)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	sat := gnss.ResolveSatellite(*satID)
	if !strings.EqualFold(sat.ID, *satID) {
		logger.Warn("unknown satellite, using first reference satellite", "requested", *satID, "using", sat.ID)
	}

	res := forecast.New(src, forecast.WithClock(func() time.Time { return now })).Generate(sat.ID, sig)
	fmt.Printf("Forecast %s (%s) signal=%s base_rms=%.3f\n", res.SatelliteID, res.Constellation, res.Signal, res.BaseRMS)
	fmt.Printf("  past:     %d points %s .. %s\n", len(res.Past), res.Past[0].Timestamp, res.Past[len(res.Past)-1].Timestamp)
	fmt.Printf("  forecast: %d points %s .. %s\n", len(res.Forecast), res.Forecast[0].Timestamp, res.Forecast[len(res.Forecast)-1].Timestamp)
	fmt.Printf("  current:  %+.4f\n", res.Current)
	for _, i := range []int{0, 3, 23, 95} {
		p := res.Forecast[i]
		fmt.Printf("    +%5.2fh value=%+.4f sigma=%.4f 95%%=[%+.4f, %+.4f]\n",
			p.HorizonHours, p.Value, p.Uncertainty, p.Bands.Lower, p.Bands.Upper)
	}

	if pos, err := orbit.Locate(sat, now); err != nil {
		fmt.Printf("Position: ERROR %v\n", err)
	} else {
		fmt.Printf("Position: lat=%.3f° lon=%.3f° alt=%.1f km speed=%.3f km/s\n",
			pos.Latitude, pos.Longitude, pos.AltitudeKm, pos.SpeedKmS)
	}

	residuals := analysis.Residuals(src, *n)
	sum := analysis.Summarize(residuals)
	fmt.Printf("\nResiduals n=%d mean=%+.4f std=%.4f rms=%.4f min=%+.4f max=%+.4f p95|r|=%.4f\n",
		sum.Count, sum.Mean, sum.Std, sum.RMS, sum.Min, sum.Max, sum.P95Abs)

	hist := analysis.Histogram(residuals, *bins)
	peak := 0
	for _, b := range hist {
		peak = max(peak, b.Count)
	}
	for _, b := range hist {
		bar := 0
		if peak > 0 {
			bar = b.Count * 40 / peak
		}
		fmt.Printf("  [%+.3f, %+.3f) %4d %s\n", b.X0, b.X1, b.Count, strings.Repeat("#", bar))
	}

	qq := analysis.QQ(residuals)
	if len(qq) > 0 {
		fmt.Println("\nQ-Q tails (theoretical, actual):")
		for _, i := range []int{0, 1, 2, len(qq) - 3, len(qq) - 2, len(qq) - 1} {
			if i < 0 || i >= len(qq) {
				continue
			}
			fmt.Printf("  %+.3f  %+.4f\n", qq[i].Theoretical, qq[i].Actual)
		}
	}

	bulletins := kpi.Bulletins(src, now)
	counts := kpi.RiskCounts(bulletins)
	fmt.Printf("\nBulletins: %d satellites, entries LOW=%d MEDIUM=%d HIGH=%d\n",
		len(bulletins), counts[kpi.RiskLow], counts[kpi.RiskMedium], counts[kpi.RiskHigh])
	for _, b := range bulletins {
		if b.MaxRisk == kpi.RiskHigh {
			fmt.Printf("  %s %-18s %-8s max_risk=%s\n", b.SatelliteID, b.Name, b.Status, b.MaxRisk)
		}
	}

	m := kpi.Compute(src, now)
	fmt.Printf("\nKPI: 15m clock=%.3f ns orbit=%.3f m | 24h clock=%.3f ns orbit=%.3f m | confidence=%.3f\n",
		m.NearTerm.ClockRMSNs, m.NearTerm.OrbitRMSM, m.LongHorizon.ClockRMSNs, m.LongHorizon.OrbitRMSM, m.ModelConfidence)
	fmt.Printf("     healthy=%d warning=%d flagged=%d total=%d\n",
		m.Status.Healthy, m.Status.Warning, m.Status.Flagged, m.TotalSatellites)
}
