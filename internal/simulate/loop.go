// Package simulate is the simulation loop (C10): for every agent and
// every simulated day, it samples an activity chain and dwell times
// from the activity data store, resolves each flexible activity's
// location through the destination-choice engine, and emits a Diary,
// per spec §4.10.
package simulate

import (
	"context"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/L-Strobel/omod-sub001/internal/activitydata"
	"github.com/L-Strobel/omod-sub001/internal/destchoice"
	"github.com/L-Strobel/omod-sub001/internal/model"
	"github.com/L-Strobel/omod-sub001/internal/rng"
)

// Config controls one simulation run.
type Config struct {
	NDays        int
	StartWeekday model.Weekday
	MasterSeed   int64
	NWorkers     int
}

// Run simulates every agent's diary across NDays, using an errgroup
// worker pool sized by cfg.NWorkers (generalizing the channel/goroutine
// fan-out this codebase's Monte-Carlo engine used for per-trial work
// into a cancel-aware pool keyed by agent instead of by trial). Diaries
// are written onto each agent in place, so the caller's id-ordered
// agent slice stays id-ordered regardless of worker interleaving, and
// each agent's RNG is derived from (master seed, agent id) so results
// are also independent of scheduling.
func Run(ctx context.Context, agents []*model.MobiAgent, store *activitydata.Store, engine *destchoice.Engine, allCells []*model.Cell, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)
	if cfg.NWorkers > 0 {
		g.SetLimit(cfg.NWorkers)
	}

	for _, agent := range agents {
		agent := agent
		g.Go(func() error {
			return simulateAgent(ctx, agent, store, engine, allCells, cfg)
		})
	}
	return g.Wait()
}

func simulateAgent(ctx context.Context, agent *model.MobiAgent, store *activitydata.Store, engine *destchoice.Engine, allCells []*model.Cell, cfg Config) error {
	r := rng.NewAgentRNG(cfg.MasterSeed, agent.ID)

	weekday := cfg.StartWeekday
	var carryLocation model.LocationOption = agent.Home
	carryFrom := model.Home

	agent.Diaries = make([]model.Diary, 0, cfg.NDays)

	for day := 0; day < cfg.NDays; day++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		bucket, _ := store.Lookup(weekday, agent.Features.HomogeneousGroup, agent.Features.MobilityGroup, ageGroup(agent.Features.Age), carryFrom)
		chain, err := activitydata.SampleChain(bucket, carryFrom, r)
		if err != nil {
			return err
		}
		dwell := activitydata.SampleDwellTimes(chain, r)

		diary := model.Diary{Day: day, DayType: weekday}
		loc := carryLocation
		for i, actType := range chain.Activities {
			if i > 0 {
				loc = resolveLocation(ctx, agent, loc, actType, allCells, engine, r)
			} else if day == 0 {
				loc = anchorFor(agent, actType, carryLocation)
			}

			var stayTime *float64
			if dwell != nil && i < len(dwell) {
				t := dwell[i]
				stayTime = &t
			}
			diary.Activities = append(diary.Activities, model.Activity{
				Type:     actType,
				StayTime: stayTime,
				Location: loc,
			})
		}

		agent.Diaries = append(agent.Diaries, diary)

		last := diary.Activities[len(diary.Activities)-1]
		carryLocation = last.Location
		carryFrom = last.Type
		weekday = weekday.Next()
	}
	return nil
}

// anchorFor resolves HOME/WORK/SCHOOL to the agent's fixed anchors; any
// other type (a flexible first-activity on day 0, possible when `from`
// carries a non-home origin into a chain that starts immediately with a
// flexible type) keeps the carried-over location.
func anchorFor(agent *model.MobiAgent, t model.ActivityType, carry model.LocationOption) model.LocationOption {
	switch t {
	case model.Home:
		return agent.Home
	case model.Work:
		return agent.Work
	case model.School:
		return agent.School
	default:
		return carry
	}
}

// resolveLocation implements §4.10 step 4: non-flexible types pin to
// the agent's anchors, everything else goes through the destination-
// choice engine's two-stage sampling with the previous activity's
// location as origin.
func resolveLocation(ctx context.Context, agent *model.MobiAgent, origin model.LocationOption, t model.ActivityType, allCells []*model.Cell, engine *destchoice.Engine, r *rand.Rand) model.LocationOption {
	if !t.Flexible() {
		return anchorFor(agent, t, origin)
	}
	return engine.ChooseDestination(ctx, origin, allCells, t, r)
}

func ageGroup(age *int) string {
	if age == nil {
		return ""
	}
	switch {
	case *age < 18:
		return "minor"
	case *age < 65:
		return "adult"
	default:
		return "senior"
	}
}
