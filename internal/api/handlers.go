package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/analysis"
	"github.com/diiviikk5/stellar-v1k/internal/forecast"
	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/httputil"
	"github.com/diiviikk5/stellar-v1k/internal/kpi"
	"github.com/diiviikk5/stellar-v1k/internal/metrics"
	"github.com/diiviikk5/stellar-v1k/internal/orbit"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

const maxHistogramBins = 200

var endpoints = []string{
	"GET /healthz",
	"GET /readyz",
	"GET /metrics",
	"GET /api/v1/satellites",
	"GET /api/v1/satellites/{id}",
	"GET /api/v1/satellites/{id}/position",
	"GET /api/v1/constellations",
	"GET /api/v1/constellations/{name}/characteristics",
	"GET /api/v1/sky",
	"GET /api/v1/orbital-parameters",
	"GET /api/v1/sources",
	"GET /api/v1/forecast/{satellite_id}",
	"GET /api/v1/residuals",
	"GET /api/v1/kpi",
	"GET /api/v1/bulletins",
	"GET /api/v1/stream/forecast",
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"service":   "stellar-v1k",
		"synthetic": true,
		"endpoints": endpoints,
	})
}

// satellitesHandler lists the reference satellites, optionally filtered by
// ?constellation=.
func satellitesHandler(w http.ResponseWriter, r *http.Request) {
	sats := gnss.Satellites()
	if name := r.URL.Query().Get("constellation"); name != "" {
		c, err := gnss.ParseConstellation(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := sats[:0]
		for _, s := range sats {
			if s.Constellation == c {
				filtered = append(filtered, s)
			}
		}
		sats = filtered
	}
	writeJSON(w, map[string]any{
		"count":      len(sats),
		"satellites": sats,
	})
}

func satelliteHandler(w http.ResponseWriter, r *http.Request) {
	sat, err := gnss.LookupSatellite(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, sat)
}

// positionHandler propagates the satellite's elements to ?t= (RFC 3339),
// defaulting to now. With an observer (?lat=&lon=) the response also
// carries look angles.
func positionHandler(logger *slog.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sat, err := gnss.LookupSatellite(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		t := now()
		if v := r.URL.Query().Get("t"); v != "" {
			t, err = time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid t parameter, must be RFC 3339")
				return
			}
		}

		obs, hasObserver, err := observerFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		pos, err := orbit.Locate(sat, t)
		switch {
		case errors.Is(err, orbit.ErrNoElements):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			logger.Warn("orbit propagation failed", "satellite", sat.ID, "time", t, "error", err)
			writeError(w, http.StatusInternalServerError, "propagation failed")
			return
		}

		resp := positionResponse{Position: pos}
		if hasObserver {
			look := obs.Look(pos)
			resp.Look = &look
		}
		writeJSON(w, resp)
	}
}

// skyHandler lists look angles of every reference satellite from the
// observer at ?lat=&lon=&alt_m=, highest first. ?visible=true drops
// satellites below the elevation mask.
func skyHandler(batch *orbit.Batch, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obs, ok, err := observerFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "lat and lon are required")
			return
		}

		t := now().UTC()
		if v := r.URL.Query().Get("t"); v != "" {
			t, err = time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid t parameter, must be RFC 3339")
				return
			}
		}

		start := time.Now()
		positions, failed := batch.LocateAll(r.Context(), gnss.Satellites(), t)
		metrics.RecordGeneration("sky", time.Since(start))

		sky := orbit.Sky(obs, positions)
		visible := 0
		for _, e := range sky {
			if e.Visible {
				visible++
			}
		}
		if r.URL.Query().Get("visible") == "true" {
			sky = sky[:visible]
		}

		writeJSON(w, map[string]any{
			"time":       t,
			"observer":   obs,
			"mask_deg":   orbit.MaskAngleDeg,
			"visible":    visible,
			"failed":     failed,
			"satellites": sky,
		})
	}
}

type positionResponse struct {
	orbit.Position
	Look *orbit.LookAngles `json:"look,omitempty"`
}

// observerFromQuery reads ?lat=&lon=&alt_m=. lat and lon come as a pair;
// alt_m defaults to 0.
func observerFromQuery(r *http.Request) (orbit.Observer, bool, error) {
	lat, hasLat, err := httputil.QueryFloat(r, "lat")
	if err != nil {
		return orbit.Observer{}, false, err
	}
	lon, hasLon, err := httputil.QueryFloat(r, "lon")
	if err != nil {
		return orbit.Observer{}, false, err
	}
	if !hasLat && !hasLon {
		return orbit.Observer{}, false, nil
	}
	if hasLat != hasLon {
		return orbit.Observer{}, false, errors.New("lat and lon must be given together")
	}
	alt, _, err := httputil.QueryFloat(r, "alt_m")
	if err != nil {
		return orbit.Observer{}, false, err
	}
	obs, err := orbit.NewObserver(lat, lon, alt)
	if err != nil {
		return orbit.Observer{}, false, err
	}
	return obs, true, nil
}

type constellationInfo struct {
	Name            gnss.Constellation        `json:"name"`
	Satellites      int                       `json:"satellites"`
	Characteristics gnss.ErrorCharacteristics `json:"characteristics"`
}

func constellationsHandler(w http.ResponseWriter, r *http.Request) {
	table := gnss.CharacteristicsTable()
	counts := make(map[gnss.Constellation]int)
	for _, s := range gnss.Satellites() {
		counts[s.Constellation]++
	}

	out := make([]constellationInfo, 0, len(gnss.Constellations))
	for _, c := range gnss.Constellations {
		out = append(out, constellationInfo{
			Name:            c,
			Satellites:      counts[c],
			Characteristics: table[c],
		})
	}
	writeJSON(w, map[string]any{"constellations": out})
}

// characteristicsHandler never fails: unknown names get the GPS record and
// "resolved" says so.
func characteristicsHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	resolved := gnss.GPS
	if c, err := gnss.ParseConstellation(name); err == nil {
		resolved = c
	}
	writeJSON(w, map[string]any{
		"constellation":   name,
		"resolved":        resolved,
		"characteristics": gnss.Characteristics(name),
	})
}

func orbitalParametersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"orbital_parameters": gnss.OrbitalParameterTable()})
}

func sourcesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"sources": gnss.DataSources()})
}

// forecastHandler returns one fresh realization per request.
// GET /api/v1/forecast/{satellite_id}?signal=clock
func forecastHandler(gen *forecast.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signal, err := forecast.ParseSignal(r.URL.Query().Get("signal"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		start := time.Now()
		res := gen.Generate(r.PathValue("satellite_id"), signal)
		metrics.RecordGeneration("forecast", time.Since(start))

		writeJSON(w, res)
	}
}

type residualsResponse struct {
	Samples   []float64          `json:"samples"`
	Histogram []analysis.Bin     `json:"histogram"`
	QQ        []analysis.QQPoint `json:"qq"`
	Summary   analysis.Summary   `json:"summary"`
}

// residualsHandler draws a residual sample and its diagnostics.
// GET /api/v1/residuals?n=500&bins=30
func residualsHandler(src stats.Source, maxSamples int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := httputil.QueryInt(r, "n", analysis.DefaultResidualCount, 0, math.MaxInt32)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if n > maxSamples {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error":       fmt.Sprintf("n=%d exceeds the sample budget", n),
				"max_samples": maxSamples,
			})
			return
		}
		bins, err := httputil.QueryInt(r, "bins", analysis.DefaultBins, 1, maxHistogramBins)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		start := time.Now()
		samples := analysis.Residuals(src, n)
		resp := residualsResponse{
			Samples:   samples,
			Histogram: analysis.Histogram(samples, bins),
			QQ:        analysis.QQ(samples),
			Summary:   analysis.Summarize(samples),
		}
		metrics.RecordGeneration("residuals", time.Since(start))
		metrics.AddResidualSamples(n)

		writeJSON(w, resp)
	}
}

func kpiHandler(src stats.Source, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m := kpi.Compute(src, now())
		metrics.RecordGeneration("kpi", time.Since(start))
		writeJSON(w, m)
	}
}

// bulletinsHandler issues a fresh bulletin set, optionally restricted by
// ?constellation=.
func bulletinsHandler(src stats.Source, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var only gnss.Constellation
		if name := r.URL.Query().Get("constellation"); name != "" {
			c, err := gnss.ParseConstellation(name)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			only = c
		}

		issued := now().UTC()
		start := time.Now()
		all := kpi.Bulletins(src, issued)
		metrics.RecordGeneration("bulletins", time.Since(start))

		bulletins := all
		if only != "" {
			bulletins = make([]kpi.Bulletin, 0, len(all))
			for _, b := range all {
				if b.Constellation == only {
					bulletins = append(bulletins, b)
				}
			}
		}

		counts := kpi.RiskCounts(bulletins)
		for risk, n := range counts {
			metrics.AddBulletinEntries(strings.ToLower(string(risk)), n)
		}

		writeJSON(w, map[string]any{
			"issued_at":   issued,
			"count":       len(bulletins),
			"risk_counts": counts,
			"bulletins":   bulletins,
		})
	}
}
