package terrain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDedupAgainstRemovesNearbyCandidates(t *testing.T) {
	promoted := []Candidate{{Name: "De Kat", Lat: 52.47505, Lon: 4.81774}}
	candidates := []Candidate{
		{Name: "duplicate", Lat: 52.47510, Lon: 4.81770}, // ~6m from De Kat
		{Name: "distinct", Lat: 52.47800, Lon: 4.81000},  // ~900m away
	}

	out := dedupAgainst(candidates, promoted, 50)
	if len(out) != 1 || out[0].Name != "distinct" {
		t.Fatalf("dedupAgainst = %+v, want only the distinct candidate", out)
	}
}

// Applying the dedup to its own output must not remove anything further,
// even though the filter writes through the input slice.
func TestDedupAgainstIdempotent(t *testing.T) {
	promoted := []Candidate{
		{Name: "De Kat", Lat: 52.47505, Lon: 4.81774},
		{Name: "De Zoeker", Lat: 52.47586, Lon: 4.81765},
	}
	candidates := []Candidate{
		{Name: "near kat", Lat: 52.47508, Lon: 4.81776},
		{Name: "mid", Lat: 52.47640, Lon: 4.81500},
		{Name: "near zoeker", Lat: 52.47583, Lon: 4.81760},
		{Name: "far", Lat: 52.47780, Lon: 4.81120},
	}

	first := dedupAgainst(candidates, promoted, 50)
	want := append([]Candidate(nil), first...)

	second := dedupAgainst(first, promoted, 50)
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("second dedup pass changed the set (-first +second):\n%s", diff)
	}
}

func TestDedupAgainstNoPromoted(t *testing.T) {
	candidates := []Candidate{{Name: "only", Lat: 52.476, Lon: 4.815}}

	out := dedupAgainst(candidates, nil, 50)
	if diff := cmp.Diff(candidates, out); diff != "" {
		t.Errorf("dedup with no promoted sites changed candidates:\n%s", diff)
	}
	out = dedupAgainst(candidates, []Candidate{{Lat: 52.476, Lon: 4.815}}, 0)
	if diff := cmp.Diff(candidates, out); diff != "" {
		t.Errorf("dedup with zero radius changed candidates:\n%s", diff)
	}
}
