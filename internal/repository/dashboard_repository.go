package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/dashboard"
)

// DashboardRepo runs the grouped count queries behind the per-role
// dashboards. It only ever counts; the handlers decide whose counts may be
// requested before calling in.
type DashboardRepo struct{ DB *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{DB: db} }

// statusCountsQuery derives a coarse workflow status per entity kind. SLEs
// report their furthest phase; reviews report their kind so the dashboard
// can show ad-hoc, IRCP and FRCP progress separately.
const statusCountsQuery = `
SELECT 'Reflection' AS kind, IF(is_locked, 'LOCKED', 'DRAFT') AS status, COUNT(*)
  FROM reflections WHERE eyd_user_id=? GROUP BY status
UNION ALL
SELECT 'ProtectedLearningTime', IF(is_locked, 'LOCKED', 'DRAFT'), COUNT(*)
  FROM protected_learning_times WHERE eyd_user_id=? GROUP BY 2
UNION ALL
SELECT 'SignificantEvent',
       CASE WHEN is_locked THEN 'LOCKED' WHEN es_signed_off THEN 'ES_SIGNED' ELSE 'DRAFT' END, COUNT(*)
  FROM significant_events WHERE eyd_user_id=? GROUP BY 2
UNION ALL
SELECT 'LearningNeed', status, COUNT(*)
  FROM learning_needs WHERE eyd_user_id=? GROUP BY 2
UNION ALL
SELECT 'SLE',
       CASE WHEN is_reflection_completed THEN 'REFLECTION_COMPLETED'
            WHEN is_assessment_completed THEN 'ASSESSMENT_COMPLETED'
            ELSE 'INVITED' END, COUNT(*)
  FROM sles WHERE eyd_user_id=? GROUP BY 2
UNION ALL
SELECT 'ClinicalLog', 'LOGGED', COUNT(*)
  FROM clinical_logs WHERE eyd_user_id=? GROUP BY 2
UNION ALL
SELECT CONCAT('Review:', kind), IF(is_locked, 'COMPLETED', 'IN_PROGRESS'), COUNT(*)
  FROM reviews WHERE eyd_user_id=? GROUP BY 1, 2`

// StatusCounts returns one trainee's entity counts grouped by kind and
// workflow status.
func (repo *DashboardRepo) StatusCounts(ctx context.Context, eydUserID uint64) ([]dashboard.StatusCount, error) {
	args := make([]any, 7)
	for i := range args {
		args[i] = eydUserID
	}
	rows, err := repo.DB.QueryContext(ctx, statusCountsQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dashboard.StatusCount
	for rows.Next() {
		var c dashboard.StatusCount
		if err := rows.Scan(&c.Kind, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RoleCounts censuses active users by role, optionally scoped to one area
// (direct placement or via the scheme chain).
func (repo *DashboardRepo) RoleCounts(ctx context.Context, areaID *uint64) ([]dashboard.RoleCount, error) {
	q := "SELECT role, COUNT(*) FROM users WHERE is_active=1"
	var args []any
	if areaID != nil {
		q += " AND (area_id=? OR scheme_id IN (SELECT id FROM schemes WHERE area_id=?))"
		args = append(args, *areaID, *areaID)
	}
	q += " GROUP BY role ORDER BY role"
	rows, err := repo.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dashboard.RoleCount
	for rows.Next() {
		var c dashboard.RoleCount
		if err := rows.Scan(&c.Role, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Trainee is a minimal row for dashboard trainee lists.
type Trainee struct {
	ID          uint64
	DisplayName string
}

// AssignedTrainees lists the EYDs an ES currently supervises.
func (repo *DashboardRepo) AssignedTrainees(ctx context.Context, esUserID uint64) ([]Trainee, error) {
	return repo.trainees(ctx,
		`SELECT u.id, u.display_name FROM es_assignments a
		 JOIN users u ON u.id = a.eyd_user_id
		 WHERE a.es_user_id=? AND a.is_active=1 AND u.is_active=1
		 ORDER BY u.display_name`, esUserID)
}

// AreaTrainees lists the EYDs whose scheme belongs to the given area.
func (repo *DashboardRepo) AreaTrainees(ctx context.Context, areaID uint64) ([]Trainee, error) {
	return repo.trainees(ctx,
		`SELECT u.id, u.display_name FROM users u
		 JOIN schemes s ON s.id = u.scheme_id
		 WHERE u.role='EYD' AND u.is_active=1 AND s.area_id=?
		 ORDER BY u.display_name`, areaID)
}

func (repo *DashboardRepo) trainees(ctx context.Context, query string, arg uint64) ([]Trainee, error) {
	rows, err := repo.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Trainee
	for rows.Next() {
		var t Trainee
		if err := rows.Scan(&t.ID, &t.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
