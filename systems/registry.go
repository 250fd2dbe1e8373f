package systems

// SystemInfo describes a simulation system for display and perf tracking.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "core", "visual", "ai")
}

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so the UI and perf tracker stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all known systems in tick order.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	r.Register(SystemInfo{ID: "formation", Name: "Formation", Description: "Moves formation anchors and publishes slot targets", Category: "core"})
	r.Register(SystemInfo{ID: "targeting", Name: "Targeting", Description: "Assigns the nearest enemy in engage range", Category: "ai"})
	r.Register(SystemInfo{ID: "movement", Name: "Movement", Description: "Steers units and integrates motion", Category: "core"})
	r.Register(SystemInfo{ID: "combat", Name: "Combat", Description: "Resolves attacks and stuns", Category: "core"})
	r.Register(SystemInfo{ID: "visibility", Name: "Visibility", Description: "Computes LOD and mesh representation", Category: "visual"})
	r.Register(SystemInfo{ID: "navigation", Name: "Navigation", Description: "Batches path requests and follows paths", Category: "ai"})
	r.Register(SystemInfo{ID: "cleanup", Name: "Cleanup", Description: "Destroys corpses past their linger time", Category: "core"})

	r.Register(SystemInfo{ID: "render", Name: "Render Snapshot", Description: "Collects render attributes for presenters", Category: "visual"})
	r.Register(SystemInfo{ID: "telemetry", Name: "Telemetry", Description: "Aggregates window statistics", Category: "internal"})
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// Categories returns all unique categories.
func (r *SystemRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, info := range r.systems {
		if !seen[info.Category] {
			seen[info.Category] = true
			cats = append(cats, info.Category)
		}
	}
	return cats
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
