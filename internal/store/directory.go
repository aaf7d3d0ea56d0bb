package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kerm1977/altair/internal/model"
	"github.com/kerm1977/altair/pkg/hash"
	"gorm.io/gorm"
)

// Profile is the composite identity returned on login: the member's
// public face joined to the account's email.
type Profile struct {
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Pin    string `json:"pin"`
	Puntos int    `json:"puntos"`
}

// Contact is one roster entry with its unread badge.
type Contact struct {
	Pin      string `json:"pin"`
	Nombre   string `json:"nombre"`
	NoLeidos int64  `json:"no_leidos"`
}

// Register creates a User and its paired Member in one transaction.
// Duplicate email or pin surfaces as ErrConflict.
func Register(db *gorm.DB, email, password, nombre, apellido1, pin string) error {
	hashed, err := hash.Password(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		member := model.Member{
			Nombre:    nombre,
			Apellido1: apellido1,
			Pin:       pin,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		user := model.User{
			Username: nombre,
			Email:    email,
			Password: hashed,
			MemberID: &member.ID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("%w: email or pin already registered", ErrConflict)
		}
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Login verifies the credentials and returns the joined profile. Unknown
// email and bad password are logged apart by callers but both map to
// ErrBadCredentials; the response never says which one failed.
func Login(db *gorm.DB, email, password string) (*Profile, error) {
	var user model.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	if !hash.Verify(user.Password, password) {
		return nil, ErrBadCredentials
	}

	member, err := pairedMember(db, &user)
	if err != nil {
		return nil, fmt.Errorf("login profile join: %w", err)
	}

	return &Profile{
		Nombre: strings.TrimSpace(member.Nombre + " " + member.Apellido1),
		Email:  user.Email,
		Pin:    member.Pin,
		Puntos: member.PuntosTotales,
	}, nil
}

// EditProfile updates the paired member's name fields and pin, located
// through the user's email. The two surname parts are concatenated into
// the single stored field.
func EditProfile(db *gorm.DB, email, nombre, apellido1, apellido2, pin string) error {
	var user model.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("edit profile lookup: %w", err)
	}

	member, err := pairedMember(db, &user)
	if err != nil {
		return fmt.Errorf("edit profile join: %w", err)
	}

	apellido := strings.TrimSpace(apellido1 + " " + apellido2)
	err = withBusyRetry(func() error {
		return db.Model(member).Updates(map[string]interface{}{
			"nombre":    nombre,
			"apellido1": apellido,
			"pin":       pin,
		}).Error
	})
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("%w: pin already in use", ErrConflict)
		}
		return fmt.Errorf("edit profile: %w", err)
	}
	return nil
}

// pairedMember resolves the member profile for a user, preferring the
// explicit member_id link. Accounts from legacy tenant files predate the
// link and fall back to the historical id correlation.
func pairedMember(db *gorm.DB, user *model.User) (*model.Member, error) {
	var member model.Member
	memberID := user.ID
	if user.MemberID != nil {
		memberID = *user.MemberID
	}
	if err := db.First(&member, memberID).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// Ranking lists every member, highest points first. Missing points count
// as zero.
func Ranking(db *gorm.DB) ([]model.Member, error) {
	var members []model.Member
	err := db.
		Select("id, nombre, apellido1, pin, COALESCE(puntos_totales, 0) AS puntos_totales").
		Order("puntos_totales DESC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	return members, nil
}

// Events lists the tenant's events in insertion order.
func Events(db *gorm.DB) ([]model.Event, error) {
	var events []model.Event
	if err := db.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return events, nil
}

// Contacts lists every member except minePin, each annotated with the
// count of unread messages that contact sent me. Badge lookups degrade
// to zero rather than failing the whole listing.
func Contacts(db *gorm.DB, minePin string) ([]Contact, error) {
	var members []model.Member
	if err := db.Where("pin <> ?", minePin).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("contacts: %w", err)
	}

	contacts := make([]Contact, 0, len(members))
	for _, m := range members {
		contacts = append(contacts, Contact{
			Pin:      m.Pin,
			Nombre:   strings.TrimSpace(m.Nombre + " " + m.Apellido1),
			NoLeidos: UnreadFrom(db, minePin, m.Pin),
		})
	}
	return contacts, nil
}
