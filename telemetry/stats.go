package telemetry

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/entity"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Unit counts at window end
	Alive     int `csv:"alive"`
	Dead      int `csv:"dead"`
	Moving    int `csv:"moving"`
	Attacking int `csv:"attacking"`
	Stunned   int `csv:"stunned"`
	Teams     int `csv:"teams_alive"`

	// Events during window
	Hits         int     `csv:"hits"`
	Kills        int     `csv:"kills"`
	Stuns        int     `csv:"stuns"`
	DamageDealt  float64 `csv:"damage_dealt"`
	PathRequests int     `csv:"path_requests"`
	PathsReady   int     `csv:"paths_ready"`
	PathsFailed  int     `csv:"paths_failed"`
	SkeletalIn   int     `csv:"skeletal_in"`
	SkeletalOut  int     `csv:"skeletal_out"`
	KillRate     float64 `csv:"kill_rate"`

	// Health distribution of living units (sampled at window end)
	HealthMean float64 `csv:"health_mean"`
	HealthP10  float64 `csv:"health_p10"`
	HealthP50  float64 `csv:"health_p50"`
	HealthP90  float64 `csv:"health_p90"`

	// Living units per team, for logs and milestone detection
	TeamAlive map[int32]int `csv:"-"`
}

// UnitSample is a census of the world taken at window end.
type UnitSample struct {
	Alive, Dead, Moving, Attacking, Stunned int

	Healths   []float64
	TeamAlive map[int32]int
}

// Sampler takes unit censuses from the store.
type Sampler struct {
	filter *ecs.Filter3[components.UnitState, components.Ability, components.Team]
	sample UnitSample
}

// NewSampler creates a sampler over the store's world.
func NewSampler(store *entity.Store) *Sampler {
	return &Sampler{
		filter: ecs.NewFilter3[components.UnitState, components.Ability, components.Team](store.World()),
		sample: UnitSample{TeamAlive: make(map[int32]int)},
	}
}

// Sample counts units by state and gathers health values. The returned
// sample is reused by the next call.
func (s *Sampler) Sample() *UnitSample {
	out := &s.sample
	out.Alive, out.Dead, out.Moving, out.Attacking, out.Stunned = 0, 0, 0, 0, 0
	out.Healths = out.Healths[:0]
	clear(out.TeamAlive)

	query := s.filter.Query()
	for query.Next() {
		st, ab, team := query.Get()
		if st.IsDead() {
			out.Dead++
			continue
		}
		out.Alive++
		out.TeamAlive[team.ID]++
		switch st.Current {
		case components.StateMoving:
			out.Moving++
		case components.StateAttacking:
			out.Attacking++
		case components.StateStunned:
			out.Stunned++
		}
		if hp, ok := ab.Attribute(components.AttrHealth); ok {
			out.Healths = append(out.Healths, hp)
		}
	}
	return out
}

// ComputeHealthStats calculates mean and percentiles from health values.
// values is sorted in place.
func ComputeHealthStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(values)
	mean = stat.Mean(values, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, values, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, values, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, values, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("alive", s.Alive),
		slog.Int("dead", s.Dead),
		slog.Int("moving", s.Moving),
		slog.Int("attacking", s.Attacking),
		slog.Int("stunned", s.Stunned),
		slog.Int("hits", s.Hits),
		slog.Int("kills", s.Kills),
		slog.Int("stuns", s.Stuns),
		slog.Float64("damage_dealt", s.DamageDealt),
		slog.Int("path_requests", s.PathRequests),
		slog.Int("paths_ready", s.PathsReady),
		slog.Int("paths_failed", s.PathsFailed),
		slog.Float64("health_mean", s.HealthMean),
		slog.Float64("health_p50", s.HealthP50),
	}
	for _, id := range sortedTeams(s.TeamAlive) {
		attrs = append(attrs, slog.Int(teamKey(id), s.TeamAlive[id]))
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}

func sortedTeams(m map[int32]int) []int32 {
	ids := make([]int32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func teamKey(id int32) string {
	return "team_" + strconv.Itoa(int(id)) + "_alive"
}
