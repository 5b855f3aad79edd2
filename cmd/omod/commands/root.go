// Package commands wires the CLI flags from spec §6 into a full OMOD
// run: area construction, grid clustering, routing cache, OD
// calibration, agent factory, simulation loop, mode resolution, and
// output, in the teacher's cobra-based CLI style.
package commands

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/L-Strobel/omod-sub001/internal/activitydata"
	"github.com/L-Strobel/omod-sub001/internal/agent"
	"github.com/L-Strobel/omod-sub001/internal/area"
	"github.com/L-Strobel/omod-sub001/internal/config"
	"github.com/L-Strobel/omod-sub001/internal/destchoice"
	"github.com/L-Strobel/omod-sub001/internal/geo"
	"github.com/L-Strobel/omod-sub001/internal/geojsonio"
	"github.com/L-Strobel/omod-sub001/internal/grid"
	"github.com/L-Strobel/omod-sub001/internal/logging"
	"github.com/L-Strobel/omod-sub001/internal/model"
	"github.com/L-Strobel/omod-sub001/internal/moderesolve"
	"github.com/L-Strobel/omod-sub001/internal/odcalib"
	"github.com/L-Strobel/omod-sub001/internal/output"
	"github.com/L-Strobel/omod-sub001/internal/rng"
	"github.com/L-Strobel/omod-sub001/internal/routing"
	"github.com/L-Strobel/omod-sub001/internal/simulate"
	"github.com/L-Strobel/omod-sub001/internal/transit"
)

var (
	Version = "dev"
	Commit  = "none"

	flags    config.RunConfig
	startWd  string
	modeSpdU []string
)

var rootCmd = &cobra.Command{
	Use:   "omod <areaGeoJson> <osmPbf>",
	Short: "OMOD synthesizes individual daily mobility demand for a region",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags.AreaGeoJSON = args[0]
		flags.OSMPbf = args[1]

		wd, ok := model.ParseWeekday(startWd)
		if !ok {
			return fmt.Errorf("invalid --start_wd %q", startWd)
		}
		flags.StartWeekday = wd

		for _, raw := range modeSpdU {
			m, err := config.ParseModeSpeedUp(flags.ModeSpeedUp, raw)
			if err != nil {
				return err
			}
			flags.ModeSpeedUp = m
		}

		logging.Init(flags.Verbose, flags.CacheDir)
		logging.SetLevel(flags.LogLevel)
		if err := config.Load(&flags); err != nil {
			return err
		}

		log.Info().Str("version", Version).Str("commit", Commit).Msg("omod starting")
		return run(cmd.Context(), &flags)
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&flags.NAgents, "n_agents", 1000, "focus-area agent count")
	f.Float64Var(&flags.SharePop, "share_pop", 1.0, "fraction of census population to simulate")
	f.IntVar(&flags.NDays, "n_days", 1, "days per agent")
	f.StringVar(&startWd, "start_wd", "MO", "first weekday")
	f.StringVar(&flags.OutPath, "out", "out.json", "output path; extension selects format")
	f.StringVar((*string)(&flags.RoutingMode), "routing_mode", string(config.RoutingBeeline), "GRAPHHOPPER|BEELINE")
	f.StringVar(&flags.ODPath, "od", "", "OD calibration GeoJSON")
	f.StringVar(&flags.CensusPath, "census", "", "census GeoJSON")
	f.Float64Var(&flags.GridPrecision, "grid_precision", 150, "grid precision in meters")
	f.Float64Var(&flags.BufferMeters, "buffer", 0, "buffer ring width in meters")
	f.Int64Var(&flags.Seed, "seed", 1, "master RNG seed")
	f.StringVar(&flags.CacheDir, "cache_dir", "./omod-cache", "cache directory")
	f.BoolVar(&flags.PopulateBufferArea, "populate_buffer_area", false, "also populate the buffer area to match census")
	f.IntVar(&flags.DistanceMatrixCacheSize, "distance_matrix_cache_size", 1000, "routing cache size (outer and inner tiers)")
	f.StringVar((*string)(&flags.ModeChoice), "mode_choice", string(config.ModeChoiceNone), "NONE|CAR_ONLY|GTFS")
	f.BoolVar(&flags.ReturnPathCoords, "return_path_coords", false, "emit path coordinates on trips")
	f.StringVar(&flags.PopulationFile, "population_file", "", "population stratum file")
	f.StringVar(&flags.ActivityGroupFile, "activity_group_file", "", "activity chain/dwell-time data file")
	f.StringVar(&flags.GTFSFile, "gtfs_file", "", "GTFS static feed (zip) for GTFS mode choice")
	f.StringVar(&flags.MatsimOutputCRS, "matsim_output_crs", "", "CRS for MATSim output (unused outside XML output)")
	f.StringArrayVar(&modeSpdU, "mode_speed_up", nil, "MODE=f, repeatable")
	f.BoolVar(&flags.Verbose, "verbose", false, "enable verbose logging")
	f.StringVar(&flags.LogLevel, "log_level", "", "explicit log level (debug|info|warn|error), overrides --verbose")
}

func run(ctx context.Context, cfg *config.RunConfig) error {
	focus, err := geojsonio.LoadFocusPolygon(cfg.AreaGeoJSON)
	if err != nil {
		return err
	}
	census, err := geojsonio.LoadCensus(cfg.CensusPath)
	if err != nil {
		return err
	}

	buildResult, err := area.Build(ctx, area.Input{
		Focus:    focus,
		BufferM:  cfg.BufferMeters,
		OSMPbf:   cfg.OSMPbf,
		Census:   census,
		CacheDir: cfg.CacheDir,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("building area: %w", err)
	}
	log.Info().Int("buildings", len(buildResult.Buildings)).Msg("area built")

	cells := grid.Cluster(buildResult.Buildings, grid.Config{FocusPrecision: cfg.GridPrecision, Seed: cfg.Seed, MaxIterations: 25})
	log.Info().Int("cells", len(cells)).Msg("grid clustered")

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	cache := routing.NewCache(provider, cfg.DistanceMatrixCacheSize, cfg.DistanceMatrixCacheSize)
	cellLocations := cellsToLocations(cells)
	matrixPath := filepath.Join(cfg.CacheDir, "routing-matrix-cache", routingMatrixKey(cfg.RoutingMode, cellLocations))
	if err := cache.Load(matrixPath, cellLocations); err != nil {
		cache.PriorityFill(ctx, cellLocations, func(l model.LocationOption) float64 { return l.Attraction(model.Home) }, runtime.GOMAXPROCS(-1))
		if err := os.MkdirAll(filepath.Dir(matrixPath), 0o755); err != nil {
			log.Warn().Err(err).Msg("failed to create routing matrix cache directory")
		} else if err := cache.Flush(matrixPath); err != nil {
			log.Warn().Err(err).Msg("failed to persist routing matrix cache")
		}
	} else {
		log.Info().Str("path", matrixPath).Msg("loaded routing matrix from cache")
	}

	deterrence := destchoice.NewDistanceDistributions(destchoice.DefaultDistanceTable())
	kFactors := destchoice.NewKFactorTable()

	zones, err := geojsonio.LoadODZones(cfg.ODPath)
	if err != nil {
		return err
	}
	engine := destchoice.NewEngine(cache, deterrence, kFactors)
	var dummyZones []agent.Zone
	if len(zones) > 0 {
		geojsonio.StampZoneFocus(zones, focus)
		locsByZone := geojsonio.LocationsByZone(buildResult.Buildings, zones)
		stampCellZones(cells)
		dummyZones = dummyLocationZones(zones, locsByZone, buildResult.Projector)
		calibrated, err := odcalib.Calibrate(ctx, zones, engine, locsByZone)
		if err != nil {
			return fmt.Errorf("calibrating OD: %w", err)
		}
		engine = destchoice.NewEngine(cache, deterrence, calibrated)
	}

	store, err := activitydata.Load(cfg.ActivityGroupFile)
	if err != nil {
		return fmt.Errorf("loading activity data: %w", err)
	}

	strata, err := agent.LoadStrata(cfg.PopulationFile)
	if err != nil {
		return err
	}

	candidates := agent.Candidates{Zones: append([]agent.Zone{{Cells: cells}}, dummyZones...)}
	factory := agent.NewFactory(strata, engine, candidates)
	factory.ResetDeterministic(cfg.NAgents)

	agents := make([]*model.MobiAgent, 0, cfg.NAgents)
	for i := int64(0); i < int64(cfg.NAgents); i++ {
		r := rng.NewAgentRNG(cfg.Seed, i)
		a := factory.Build(ctx, i, false, true, r)
		agents = append(agents, a)
	}

	if cfg.PopulateBufferArea {
		nExtra := bufferExtensionCount(buildResult.Buildings, cfg.NAgents)
		for j := 0; j < nExtra; j++ {
			id := int64(cfg.NAgents) + int64(j)
			r := rng.NewAgentRNG(cfg.Seed, id)
			agents = append(agents, factory.Build(ctx, id, true, false, r))
		}
		log.Info().Int("buffer_agents", nExtra).Msg("buffer area populated")
	}
	log.Info().Int("agents", len(agents)).Msg("agents constructed")

	if err := simulate.Run(ctx, agents, store, engine, cells, simulate.Config{
		NDays: cfg.NDays, StartWeekday: cfg.StartWeekday, MasterSeed: cfg.Seed, NWorkers: runtime.GOMAXPROCS(-1),
	}); err != nil {
		return fmt.Errorf("simulating: %w", err)
	}

	transitProvider, err := loadTransit(cfg)
	if err != nil {
		return err
	}
	resolver := buildResolver(cfg, cache, transitProvider)
	startOfDay := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, a := range agents {
		r := rng.NewAgentRNG(cfg.Seed, a.ID)
		for i := range a.Diaries {
			resolver.Resolve(ctx, &a.Diaries[i], a.CarAccess, startOfDay, r)
		}
	}

	params := output.RunParameters{
		NAgents: cfg.NAgents, SharePop: cfg.SharePop, NDays: cfg.NDays,
		StartWeekday: cfg.StartWeekday.String(), RoutingMode: string(cfg.RoutingMode),
		GridPrecision: cfg.GridPrecision, Buffer: cfg.BufferMeters, Seed: cfg.Seed,
		PopulateBufferArea: cfg.PopulateBufferArea, ModeChoice: string(cfg.ModeChoice),
	}
	if err := output.Write(cfg.OutPath, params, agents); err != nil {
		return err
	}

	log.Info().Str("out", cfg.OutPath).Msg("omod finished")
	return nil
}

// bufferExtensionCount implements spec §4.9 step 6: when populating the
// buffer area, the number of additional agents is scaled so the overall
// focus/buffer population split in the generated population matches the
// census-derived split among built buildings, with the n_agents already
// built guaranteed to sit in the focus (see the restrictHomeToFocus
// parameter of agent.Factory.Build).
func bufferExtensionCount(buildings []*model.Building, nFocusAgents int) int {
	var focusPop, bufferPop float64
	for _, b := range buildings {
		if b.InFocusArea() {
			focusPop += b.Population
		} else {
			bufferPop += b.Population
		}
	}
	if focusPop <= 0 || bufferPop <= 0 {
		return 0
	}
	return int(float64(nFocusAgents) * bufferPop / focusPop)
}

// routingMatrixKey derives the persisted-matrix filename from spec §4.4:
// "(mode, |locations|, bounding box of lat-lons)". Content, not just
// count, feeds the bounding box term so two runs over different areas
// with the same cell count never collide.
func routingMatrixKey(mode config.RoutingMode, locations []model.LocationOption) string {
	h := sha1.New()
	fmt.Fprintf(h, "mode=%s|n=%d", mode, len(locations))
	var minLat, minLon, maxLat, maxLon float64
	for i, l := range locations {
		ll := l.LatLon()
		if i == 0 {
			minLat, maxLat = ll[1], ll[1]
			minLon, maxLon = ll[0], ll[0]
			continue
		}
		if ll[1] < minLat {
			minLat = ll[1]
		}
		if ll[1] > maxLat {
			maxLat = ll[1]
		}
		if ll[0] < minLon {
			minLon = ll[0]
		}
		if ll[0] > maxLon {
			maxLon = ll[0]
		}
	}
	fmt.Fprintf(h, "|bbox=%.6f,%.6f,%.6f,%.6f", minLat, minLon, maxLat, maxLon)
	return hex.EncodeToString(h.Sum(nil))[:16] + ".gob"
}

// stampCellZones propagates building-level OD zone membership (set by
// geojsonio.LocationsByZone) up to each cell, taking the zone the most
// members share, so zone-pair k-factors already bite at the cell stage
// of two-stage sampling rather than only at the refine stage.
func stampCellZones(cells []*model.Cell) {
	for _, c := range cells {
		counts := make(map[*model.ODZone]int)
		var seen []*model.ODZone
		for _, b := range c.Buildings {
			z := b.Zone()
			if z == nil {
				continue
			}
			if counts[z] == 0 {
				seen = append(seen, z)
			}
			counts[z]++
		}
		// Iterate in first-seen order so ties resolve deterministically.
		var best *model.ODZone
		bestCount := 0
		for _, z := range seen {
			if counts[z] > bestCount {
				best, bestCount = z, counts[z]
			}
		}
		c.SetZone(best)
	}
}

// dummyLocationZones builds one DummyLocation-backed candidate zone per
// OD zone that contains no buildings in the model area. The dummy may
// participate only in the zone's own flow activities (HOME/WORK for the
// supported OD form), per the data model's transfer-activity rule.
func dummyLocationZones(zones []*model.ODZone, locsByZone map[string][]model.LocationOption, proj *geo.Projector) []agent.Zone {
	var out []agent.Zone
	for _, z := range zones {
		if len(locsByZone[z.Name]) > 0 {
			continue
		}
		dl := model.NewDummyLocation(z, proj.ToModelCRS(z.Centroid), z.Centroid)
		dl.TransferActivities[z.OriginActivity] = true
		dl.TransferActivities[z.DestActivity] = true
		out = append(out, agent.Zone{Dummy: dl})
	}
	return out
}

func cellsToLocations(cells []*model.Cell) []model.LocationOption {
	out := make([]model.LocationOption, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

func newProvider(cfg *config.RunConfig) (routing.Provider, error) {
	switch cfg.RoutingMode {
	case config.RoutingGraphHopper:
		return routing.NewGraphHopper(cfg.GraphHopperURL, "car"), nil
	case config.RoutingBeeline:
		return routing.Beeline{}, nil
	default:
		return nil, fmt.Errorf("unsupported routing mode %q", cfg.RoutingMode)
	}
}

// buildResolver wires the mode resolver. Car/bike/foot share the same
// distance cache: the router computes distance, not mode-specific
// geometry, so the only per-mode difference is the constant speed
// applied on top in moderesolve.
func buildResolver(cfg *config.RunConfig, carCache *routing.Cache, transitProvider transit.Provider) *moderesolve.Resolver {
	var policy moderesolve.Policy
	switch cfg.ModeChoice {
	case config.ModeChoiceCarOnly:
		policy = moderesolve.PolicyCarOnly
	case config.ModeChoiceGTFS:
		policy = moderesolve.PolicyGTFS
	default:
		policy = moderesolve.PolicyNone
	}
	return moderesolve.New(policy, carCache, carCache, carCache, transitProvider, cfg.ModeSpeedUp, cfg.ReturnPathCoords)
}

func loadTransit(cfg *config.RunConfig) (transit.Provider, error) {
	if cfg.GTFSFile == "" {
		return transit.Beeline{}, nil
	}
	data, err := os.ReadFile(cfg.GTFSFile)
	if err != nil {
		return nil, fmt.Errorf("reading GTFS feed %q: %w", cfg.GTFSFile, err)
	}
	feed, err := transit.LoadStatic(data)
	if err != nil {
		return nil, fmt.Errorf("parsing GTFS feed %q: %w", cfg.GTFSFile, err)
	}
	return feed, nil
}
