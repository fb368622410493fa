// Package dashboard turns repository count rows into the per-role summary
// structures the dashboard endpoints return. It is pure aggregation: every
// authorization decision happens before the counts are queried, so a summary
// can never contain data its viewer would be refused directly.
package dashboard

// StatusCount is one grouped count row from storage: how many entities of a
// kind sit in a given workflow status for one trainee.
type StatusCount struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Summary is the per-trainee rollup: counts nested by kind then status,
// plus per-kind totals.
type Summary struct {
	ByKind map[string]map[string]int `json:"by_kind"`
	Totals map[string]int            `json:"totals"`
}

// Summarize groups the raw rows. Kinds absent from rows are simply absent
// from the summary.
func Summarize(rows []StatusCount) Summary {
	s := Summary{ByKind: make(map[string]map[string]int), Totals: make(map[string]int)}
	for _, r := range rows {
		byStatus, ok := s.ByKind[r.Kind]
		if !ok {
			byStatus = make(map[string]int)
			s.ByKind[r.Kind] = byStatus
		}
		byStatus[r.Status] += r.Count
		s.Totals[r.Kind] += r.Count
	}
	return s
}

// Completion returns the share of entities of kind in any of the given
// terminal statuses, as a whole percentage. A kind with no entities is 0.
func (s Summary) Completion(kind string, terminal ...string) int {
	total := s.Totals[kind]
	if total == 0 {
		return 0
	}
	done := 0
	for _, st := range terminal {
		done += s.ByKind[kind][st]
	}
	return (done*100 + total/2) / total
}

// RoleCount is one row of the admin/superuser user census.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// TraineeSummary pairs a trainee with their summary, for the ES and TPD
// dashboards.
type TraineeSummary struct {
	EYDUserID   uint64  `json:"eyd_user_id"`
	DisplayName string  `json:"display_name"`
	Summary     Summary `json:"summary"`
}
