package health

// ChangeKind classifies a status flip between two snapshots.
type ChangeKind string

const (
	Improvement ChangeKind = "improvement"
	Degradation ChangeKind = "degradation"
)

// Change records one check whose status differs between snapshots.
type Change struct {
	Check  string     `json:"check"`
	Kind   ChangeKind `json:"kind"`
	Before string     `json:"before"`
	After  string     `json:"after"`
}

// Comparison is the result of diffing a pre-deployment snapshot against a
// post-deployment snapshot.
type Comparison struct {
	Changes      []Change `json:"changes"`
	Improvements int      `json:"improvements"`
	Degradations int      `json:"degradations"`
}

// Compare diffs two snapshots by check name. For each check present in the
// post-report, the matching pre-report check is looked up; a status flip is
// recorded as an improvement (became healthy) or a degradation (became
// unhealthy). Checks new in the post-report have no baseline and are skipped.
func Compare(pre, post *Report) *Comparison {
	comparison := &Comparison{}
	if pre == nil || post == nil {
		return comparison
	}

	baseline := make(map[string]string, len(pre.Checks))
	for _, check := range pre.Checks {
		baseline[check.Name] = check.Status
	}

	for _, check := range post.Checks {
		before, ok := baseline[check.Name]
		if !ok || before == check.Status {
			continue
		}

		kind := Degradation
		if check.Status == StatusHealthy {
			kind = Improvement
		}

		comparison.Changes = append(comparison.Changes, Change{
			Check:  check.Name,
			Kind:   kind,
			Before: before,
			After:  check.Status,
		})
		if kind == Improvement {
			comparison.Improvements++
		} else {
			comparison.Degradations++
		}
	}

	return comparison
}
