package scanner

import "github.com/defistate/defistate-arb-go/engine"

// PathDiff describes how the ranked path set changed between two cache builds.
type PathDiff struct {
	Additions []engine.Path `json:"additions,omitempty"`
	// Updates are paths present in both builds whose liquidity score changed.
	Updates   []engine.Path `json:"updates,omitempty"`
	Deletions []engine.Path `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d PathDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// DiffPaths compares two path sets keyed by engine.Path.Key. Additions and
// updates follow the order of new, deletions the order of old.
func DiffPaths(old, new []engine.Path) PathDiff {
	oldByKey := make(map[string]engine.Path, len(old))
	for _, p := range old {
		oldByKey[p.Key()] = p
	}
	newKeys := make(map[string]struct{}, len(new))

	var diff PathDiff
	for _, p := range new {
		key := p.Key()
		newKeys[key] = struct{}{}
		prev, ok := oldByKey[key]
		if !ok {
			diff.Additions = append(diff.Additions, p)
			continue
		}
		if !sameLiquidity(prev, p) {
			diff.Updates = append(diff.Updates, p)
		}
	}
	for _, p := range old {
		if _, ok := newKeys[p.Key()]; !ok {
			diff.Deletions = append(diff.Deletions, p)
		}
	}
	return diff
}

func sameLiquidity(a, b engine.Path) bool {
	if a.Liquidity == nil || b.Liquidity == nil {
		return a.Liquidity == b.Liquidity
	}
	return a.Liquidity.Cmp(b.Liquidity) == 0
}
