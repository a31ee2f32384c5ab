package database

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/models"
)

// DevAdminEmail is the seeded development admin.
const DevAdminEmail = "dev@ki-report.local"

// devBriefing is a complete questionnaire for local pipeline runs.
const devBriefing = `{
	"branche": "beratung",
	"unternehmensgroesse": "kmu",
	"bundesland": "BE",
	"hauptleistung": "Digitalisierungsberatung für den Mittelstand",
	"jahresumsatz": "500k_2m",
	"investitionsbudget": "10000_50000",
	"zeitbudget": "5_10",
	"anwendungsfaelle": ["texterstellung", "prozessautomatisierung", "datenanalyse"],
	"ki_ziele": ["effizienz", "qualitaet"],
	"roadmap_vorhanden": "teilweise",
	"governance_richtlinien": "teilweise",
	"datenschutz": true,
	"datenschutzbeauftragter": "ja",
	"technische_massnahmen": "teilweise",
	"folgenabschaetzung": "nein",
	"loeschregeln": "teilweise",
	"hosting_region": "eu",
	"it_infrastruktur": "cloud",
	"ki_kompetenz": "mittel",
	"change_management": "mittel",
	"innovationsprozess": "teilweise",
	"prozesse_papierlos": "61-80",
	"automatisierungsgrad": "mittel",
	"pilot_bereich": "vertrieb",
	"vision_prioritaet": "effizienz",
	"strategische_ziele": "Angebotserstellung halbieren"
}`

// SeedDevData creates a development admin and one sample briefing.
// Idempotent: skips if the admin already exists.
func SeedDevData(db *gorm.DB, logger *slog.Logger) error {
	var existing models.User
	err := db.Where("email = ?", DevAdminEmail).First(&existing).Error
	if err == nil {
		logger.Info("seed data already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check seed data: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := models.User{Email: DevAdminEmail, Name: "Dev Admin", IsAdmin: true}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}

		briefing := models.Briefing{
			UserID:  &admin.ID,
			Lang:    "de",
			Answers: datatypes.JSON([]byte(devBriefing)),
		}
		if err := tx.Create(&briefing).Error; err != nil {
			return fmt.Errorf("failed to seed briefing: %w", err)
		}

		logger.Info("seeded dev data", "admin", DevAdminEmail, "briefing_id", briefing.ID)
		return nil
	})
}
