package systems

import "testing"

func TestSystemRegistry_CategoriesCoverEverySystem(t *testing.T) {
	reg := NewSystemRegistry()

	cats := reg.Categories()
	if len(cats) != 4 || cats[0] != "core" {
		t.Fatalf("categories = %v, want core first of 4", cats)
	}

	seen := map[string]bool{}
	for _, cat := range cats {
		for _, info := range reg.ByCategory(cat) {
			if info.Category != cat {
				t.Errorf("%s listed under %s", info.ID, cat)
			}
			seen[info.ID] = true
		}
	}
	for _, id := range reg.IDs() {
		if !seen[id] {
			t.Errorf("%s missing from every category", id)
		}
	}
	if got := reg.ByCategory("ai"); len(got) != 2 || got[0].ID != "targeting" || got[1].ID != "navigation" {
		t.Errorf("ai systems = %+v, want targeting then navigation", got)
	}
}
