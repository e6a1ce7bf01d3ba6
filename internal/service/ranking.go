package service

import (
	"sort"

	"github.com/spec-kit/appeal-service/internal/domain"
)

// candidate pairs an admin's workload with their best expertise score
// for the category being ranked.
type candidate struct {
	workload       domain.AdminWorkload
	expertiseScore int
	hasExpertise   bool
}

// buildCandidates joins available workloads with category expertise,
// dropping the excluded admin. Each ranking phase below stays small so
// it can be exercised on its own.
func buildCandidates(workloads []domain.AdminWorkload, expertise []domain.AdminCategoryExpertise, exclude *int64) []candidate {
	scores := make(map[int64]int, len(expertise))
	for i := range expertise {
		score := expertise[i].ExpertiseScore()
		if best, ok := scores[expertise[i].AdminID]; !ok || score > best {
			scores[expertise[i].AdminID] = score
		}
	}

	result := make([]candidate, 0, len(workloads))
	for _, w := range workloads {
		if !w.Available {
			continue
		}
		if exclude != nil && w.AdminID == *exclude {
			continue
		}
		score, ok := scores[w.AdminID]
		result = append(result, candidate{workload: w, expertiseScore: score, hasExpertise: ok})
	}
	return result
}

// rankExperts orders category experts by expertise score descending,
// breaking ties with the lowest active-appeal count.
func rankExperts(candidates []candidate) []candidate {
	experts := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.hasExpertise {
			experts = append(experts, c)
		}
	}
	sort.SliceStable(experts, func(i, j int) bool {
		if experts[i].expertiseScore != experts[j].expertiseScore {
			return experts[i].expertiseScore > experts[j].expertiseScore
		}
		return experts[i].workload.ActiveAppeals < experts[j].workload.ActiveAppeals
	})
	return experts
}

// rankByWorkload orders admins by lowest active count, preferring the
// warmest (most recently active) admin on ties.
func rankByWorkload(candidates []candidate) []candidate {
	ranked := make([]candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := ranked[i].workload, ranked[j].workload
		if wi.ActiveAppeals != wj.ActiveAppeals {
			return wi.ActiveAppeals < wj.ActiveAppeals
		}
		return wi.LastActivityAt.After(wj.LastActivityAt)
	})
	return ranked
}

// pickBestAdmin runs the two-phase selection: category experts first,
// general workload fallback second. Returns nil when nobody is
// available.
func pickBestAdmin(workloads []domain.AdminWorkload, expertise []domain.AdminCategoryExpertise, exclude *int64) *domain.AdminWorkload {
	candidates := buildCandidates(workloads, expertise, exclude)
	if len(candidates) == 0 {
		return nil
	}
	if experts := rankExperts(candidates); len(experts) > 0 {
		best := experts[0].workload
		return &best
	}
	fallback := rankByWorkload(candidates)
	best := fallback[0].workload
	return &best
}
