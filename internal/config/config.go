// Package config resolves OMOD's run configuration: CLI flags plus a
// thin environment/.env layer for values operators don't want on a
// command line (the routing service URL), mirroring this
// codebase's existing godotenv-based config loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

// RoutingMode selects the distance provider backing C4.
type RoutingMode string

const (
	RoutingBeeline     RoutingMode = "BEELINE"
	RoutingGraphHopper RoutingMode = "GRAPHHOPPER"
)

// ModeChoicePolicy selects C11's mode-resolution strategy.
type ModeChoicePolicy string

const (
	ModeChoiceNone     ModeChoicePolicy = "NONE"
	ModeChoiceCarOnly  ModeChoicePolicy = "CAR_ONLY"
	ModeChoiceGTFS     ModeChoicePolicy = "GTFS"
)

// RunConfig holds every CLI option from spec §6, after flag parsing and
// environment resolution.
type RunConfig struct {
	AreaGeoJSON string
	OSMPbf      string

	NAgents            int
	SharePop           float64
	NDays              int
	StartWeekday       model.Weekday
	OutPath            string
	RoutingMode        RoutingMode
	ODPath             string
	CensusPath         string
	GridPrecision      float64
	BufferMeters       float64
	Seed               int64
	CacheDir           string
	PopulateBufferArea bool
	DistanceMatrixCacheSize int
	ModeChoice         ModeChoicePolicy
	ReturnPathCoords   bool
	PopulationFile     string
	ActivityGroupFile  string
	GTFSFile           string
	MatsimOutputCRS    string
	ModeSpeedUp        map[model.Mode]float64

	// GraphHopperURL is resolved from the environment (GRAPHHOPPER_URL)
	// rather than a flag, since it is an infra endpoint, not run
	// parameterization that belongs in output provenance.
	GraphHopperURL string
	Verbose        bool
	LogLevel       string
}

// Load applies the environment layer on top of already-parsed flags:
// it loads .env (cwd, then the binary's directory) for infra settings
// and ensures the cache directory tree exists.
func Load(cfg *RunConfig) error {
	_ = godotenv.Load()
	if exePath, err := os.Executable(); err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	if cfg.GraphHopperURL == "" {
		cfg.GraphHopperURL = getEnv("GRAPHHOPPER_URL", "http://localhost:8989")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "./omod-cache"
	}
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return fmt.Errorf("config: creating cache dir %q: %w", cfg.CacheDir, err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.CacheDir, "routing-matrix-cache"), 0755); err != nil {
		log.Warn().Err(err).Msg("failed to pre-create routing-matrix-cache directory")
	}
	return cfg.Validate()
}

// Validate rejects obviously-inconsistent configuration at startup, per
// spec §7's "configuration error -> abort with a descriptive message".
func (c *RunConfig) Validate() error {
	if c.SharePop < 0 || c.SharePop > 1 {
		return fmt.Errorf("config: --share_pop must be in [0,1], got %v", c.SharePop)
	}
	if c.NAgents < 0 {
		return fmt.Errorf("config: --n_agents must be >= 0, got %d", c.NAgents)
	}
	if c.NDays < 1 {
		return fmt.Errorf("config: --n_days must be >= 1, got %d", c.NDays)
	}
	switch c.RoutingMode {
	case RoutingBeeline, RoutingGraphHopper:
	default:
		return fmt.Errorf("config: unsupported --routing_mode %q", c.RoutingMode)
	}
	switch c.ModeChoice {
	case ModeChoiceNone, ModeChoiceCarOnly, ModeChoiceGTFS:
	default:
		return fmt.Errorf("config: unsupported --mode_choice %q", c.ModeChoice)
	}
	ext := strings.ToLower(filepath.Ext(c.OutPath))
	switch ext {
	case ".json":
	case ".xml", ".db":
		return fmt.Errorf("config: output format %q is not implemented", ext)
	default:
		return fmt.Errorf("config: unrecognized --out extension %q", ext)
	}
	return nil
}

// ParseModeSpeedUp parses a repeated --mode_speed_up=MODE=f flag value.
func ParseModeSpeedUp(existing map[model.Mode]float64, raw string) (map[model.Mode]float64, error) {
	if existing == nil {
		existing = make(map[model.Mode]float64)
	}
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("config: --mode_speed_up must be MODE=f, got %q", raw)
	}
	mode, ok := parseMode(parts[0])
	if !ok {
		return nil, fmt.Errorf("config: unknown mode %q in --mode_speed_up", parts[0])
	}
	f, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("config: invalid factor in --mode_speed_up=%q: %w", raw, err)
	}
	existing[mode] = f
	return existing, nil
}

func parseMode(s string) (model.Mode, bool) {
	for _, m := range []model.Mode{model.CarDriver, model.CarPassenger, model.PublicTransit, model.Bicycle, model.Foot} {
		if m.String() == s {
			return m, true
		}
	}
	return model.UndefinedMode, false
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
