package database

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/utils"
)

// epaCatalog is the fixed ten-code competency set. Titles are reference
// data: once a row exists it is never overwritten.
var epaCatalog = []model.EPA{
	{Code: "EPA1", Title: "Assess and manage the new adult patient", Description: "History, examination, diagnosis and treatment planning for an adult presenting for routine care."},
	{Code: "EPA2", Title: "Manage dental caries in the adult patient", Description: "Caries risk assessment, prevention and operative management."},
	{Code: "EPA3", Title: "Manage periodontal disease", Description: "Periodontal assessment, non-surgical therapy and maintenance."},
	{Code: "EPA4", Title: "Restore teeth with direct restorations", Description: "Selection, placement and review of direct restorative materials."},
	{Code: "EPA5", Title: "Provide endodontic treatment on single-rooted teeth", Description: "Diagnosis, access, preparation and obturation of uncomplicated canals."},
	{Code: "EPA6", Title: "Extract erupted teeth", Description: "Assessment for and delivery of routine exodontia including post-operative care."},
	{Code: "EPA7", Title: "Replace missing teeth with removable prostheses", Description: "Design, fit and review of partial and complete dentures."},
	{Code: "EPA8", Title: "Manage the child patient", Description: "Behaviour management, prevention and restorative care for children."},
	{Code: "EPA9", Title: "Manage dental emergencies and acute pain", Description: "Triage, diagnosis and management of acute presentations."},
	{Code: "EPA10", Title: "Promote oral health and prevention", Description: "Risk-based prevention, patient education and population-level advice."},
}

// Seed makes the reference data the rest of the system assumes present: the
// EPA catalog and one superuser account. It is idempotent and safe to run on
// every boot.
func Seed(ctx context.Context, db *sql.DB, log *zap.Logger, superEmail, superPassword string, bcryptCost int) error {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM epas").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		for _, e := range epaCatalog {
			if _, err := db.ExecContext(ctx,
				"INSERT INTO epas (code, title, description, is_active) VALUES (?,?,?,1)",
				e.Code, e.Title, e.Description); err != nil {
				return err
			}
		}
		log.Info("seeded EPA catalog", zap.Int("count", len(epaCatalog)))
	}

	if superEmail == "" || superPassword == "" {
		return nil
	}
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role=?", model.RoleSuperuser).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := utils.HashPassword(superPassword, bcryptCost)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO users (email, display_name, password_hash, role, is_active) VALUES (?,?,?,?,1)",
		strings.ToLower(strings.TrimSpace(superEmail)), "Superuser", hash, model.RoleSuperuser); err != nil {
		return err
	}
	log.Info("seeded bootstrap superuser", zap.String("email", superEmail))
	return nil
}
