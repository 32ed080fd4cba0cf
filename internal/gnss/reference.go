package gnss

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSatelliteNotFound is returned by LookupSatellite for unknown IDs.
var ErrSatelliteNotFound = errors.New("satellite not found")

//go:embed reference.yaml
var referenceYAML []byte

type constellationDoc struct {
	Name            Constellation        `yaml:"name"`
	Characteristics ErrorCharacteristics `yaml:"characteristics"`
	Orbit           OrbitalParameters    `yaml:"orbit"`
}

type referenceDoc struct {
	Constellations []constellationDoc `yaml:"constellations"`
	Satellites     []SatelliteRecord  `yaml:"satellites"`
	KPIBaselines   []KPIBaseline      `yaml:"kpi_baselines"`
	Sources        []DataSource       `yaml:"sources"`
}

// reference is the indexed, read-only form of the embedded tables.
type reference struct {
	doc   referenceDoc
	chars map[Constellation]ErrorCharacteristics
	orbit map[Constellation]OrbitalParameters
	byID  map[string]int
}

// ref is built once at package initialization and never written afterwards.
var ref = mustParseReference(referenceYAML)

func mustParseReference(data []byte) *reference {
	r, err := parseReference(data)
	if err != nil {
		panic(fmt.Sprintf("gnss: embedded reference tables: %v", err))
	}
	return r
}

func parseReference(data []byte) (*reference, error) {
	var doc referenceDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding reference yaml: %w", err)
	}

	r := &reference{
		doc:   doc,
		chars: make(map[Constellation]ErrorCharacteristics, len(doc.Constellations)),
		orbit: make(map[Constellation]OrbitalParameters, len(doc.Constellations)),
		byID:  make(map[string]int, len(doc.Satellites)),
	}

	for _, c := range doc.Constellations {
		if !slices.Contains(Constellations, c.Name) {
			return nil, fmt.Errorf("unsupported constellation %q", c.Name)
		}
		if c.Characteristics.BroadcastClockRMS <= 0 {
			return nil, fmt.Errorf("constellation %s: broadcast_clock_rms must be positive", c.Name)
		}
		r.chars[c.Name] = c.Characteristics
		op := c.Orbit
		op.Constellation = c.Name
		r.orbit[c.Name] = op
	}
	if _, ok := r.chars[GPS]; !ok {
		return nil, errors.New("GPS characteristics are required as the fallback record")
	}

	if len(doc.Satellites) == 0 {
		return nil, errors.New("satellite list is empty")
	}
	for i, s := range doc.Satellites {
		if s.ID == "" {
			return nil, fmt.Errorf("satellite %d: missing id", i)
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("satellite %s: duplicate id", s.ID)
		}
		if _, ok := r.chars[s.Constellation]; !ok {
			return nil, fmt.Errorf("satellite %s: no characteristics for constellation %q", s.ID, s.Constellation)
		}
		if len(s.TLE) != 0 && len(s.TLE) != 2 {
			return nil, fmt.Errorf("satellite %s: tle must have exactly two lines", s.ID)
		}
		r.byID[s.ID] = i
	}

	return r, nil
}

// Characteristics returns the error budget of the named constellation.
// Names match case-insensitively; unknown names get the GPS record.
func Characteristics(name string) ErrorCharacteristics {
	if c, err := ParseConstellation(name); err == nil {
		if e, ok := ref.chars[c]; ok {
			return e
		}
	}
	return ref.chars[GPS]
}

// CharacteristicsTable returns a copy of every constellation's error budget.
func CharacteristicsTable() map[Constellation]ErrorCharacteristics {
	out := make(map[Constellation]ErrorCharacteristics, len(ref.chars))
	for k, v := range ref.chars {
		out[k] = v
	}
	return out
}

// OrbitalParameterTable returns the nominal geometry of each constellation in
// display order.
func OrbitalParameterTable() []OrbitalParameters {
	out := make([]OrbitalParameters, 0, len(ref.orbit))
	for _, c := range Constellations {
		if op, ok := ref.orbit[c]; ok {
			out = append(out, op)
		}
	}
	return out
}

// Satellites returns a copy of the reference satellite list.
func Satellites() []SatelliteRecord {
	out := make([]SatelliteRecord, len(ref.doc.Satellites))
	for i, s := range ref.doc.Satellites {
		out[i] = cloneRecord(s)
	}
	return out
}

// FirstSatellite returns the head of the reference list.
func FirstSatellite() SatelliteRecord {
	return cloneRecord(ref.doc.Satellites[0])
}

// LookupSatellite returns the record with the given ID (case-insensitive).
func LookupSatellite(id string) (SatelliteRecord, error) {
	if i, ok := ref.byID[strings.ToUpper(strings.TrimSpace(id))]; ok {
		return cloneRecord(ref.doc.Satellites[i]), nil
	}
	return SatelliteRecord{}, fmt.Errorf("%w: %q", ErrSatelliteNotFound, id)
}

// ResolveSatellite returns the record with the given ID, or the first
// reference satellite when the ID is unknown.
func ResolveSatellite(id string) SatelliteRecord {
	s, err := LookupSatellite(id)
	if err != nil {
		return FirstSatellite()
	}
	return s
}

// KPIBaselines returns a copy of the baseline/forecast comparison table.
func KPIBaselines() []KPIBaseline {
	return slices.Clone(ref.doc.KPIBaselines)
}

// DataSources returns a copy of the citation list.
func DataSources() []DataSource {
	return slices.Clone(ref.doc.Sources)
}

func cloneRecord(s SatelliteRecord) SatelliteRecord {
	s.TLE = slices.Clone(s.TLE)
	return s
}
