package tenant

import (
	"fmt"
	"strings"

	"github.com/kerm1977/altair/internal/model"
	"github.com/kerm1977/altair/pkg/config"
	"github.com/kerm1977/altair/pkg/hash"
	"gorm.io/gorm"
)

// Seed writes the bootstrap records for a freshly created tenant file:
// the configured administrator accounts with their paired member
// profiles, one demo member and one demo event named after the slug.
// Runs in a single transaction so a failure leaves nothing half-seeded.
func Seed(db *gorm.DB, slug string, cfg *config.Config) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i, email := range cfg.Seed.AdminEmails {
			hashed, err := hash.Password(cfg.Seed.AdminPassword)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}

			// Admin pins start at 9001 to stay clear of the demo pin.
			member := model.Member{
				Nombre:    "Admin",
				Apellido1: slug,
				Pin:       fmt.Sprintf("9%03d", i+1),
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("seed admin member: %w", err)
			}

			user := model.User{
				Username:    usernameFromEmail(email),
				Email:       email,
				Password:    hashed,
				IsSuperuser: true,
				MemberID:    &member.ID,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed admin user: %w", err)
			}
		}

		demo := model.Member{
			Nombre:        "Guerrero Inicial",
			Apellido1:     slug,
			Pin:           "1234",
			PuntosTotales: 100,
		}
		if err := tx.Create(&demo).Error; err != nil {
			return fmt.Errorf("seed demo member: %w", err)
		}

		event := model.Event{
			Nombre: "Primera Caminata " + slug,
			Fecha:  "2024-12-01",
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("seed demo event: %w", err)
		}

		return nil
	})
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
