package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/kerm1977/altair/internal/store"
	"github.com/kerm1977/altair/pkg/logger"
	"github.com/kerm1977/altair/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Ranking lists the tenant's members ordered by points
func Ranking(c echo.Context) error {
	log := logger.FromContext(c)

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant unavailable"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	members, err := store.Ranking(db)
	if err != nil {
		log.Error("Failed to list ranking", zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ranking unavailable"})
	}

	return c.JSON(http.StatusOK, members)
}

// Eventos lists the tenant's events
func Eventos(c echo.Context) error {
	log := logger.FromContext(c)

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant unavailable"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	events, err := store.Events(db)
	if err != nil {
		log.Error("Failed to list events", zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "events unavailable"})
	}

	return c.JSON(http.StatusOK, events)
}

// Registro creates a user with its paired member profile
func Registro(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		Nombre    string `json:"nombre"`
		Apellido1 string `json:"apellido1"`
		Pin       string `json:"pin"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "mensaje": "solicitud inválida"})
	}

	if req.Email == "" || req.Password == "" || req.Nombre == "" || req.Pin == "" {
		log.Error("Incomplete registration data", zap.String("email", req.Email))
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  "error",
			"mensaje": "email, password, nombre y pin son obligatorios",
		})
	}

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "tenant no disponible"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := store.Register(db, req.Email, req.Password, req.Nombre, req.Apellido1, req.Pin); err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Error("Registration conflict", zap.String("email", req.Email), zap.String("pin", req.Pin))
			prometheus.RecordAuthError("registration_conflict")
			return c.JSON(http.StatusConflict, echo.Map{
				"status":  "error",
				"mensaje": "el email o el pin ya están registrados",
			})
		}
		log.Error("Failed to register user", zap.Error(err))
		prometheus.RecordAuthError("registration_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "registro fallido"})
	}

	log.Info("User registered", zap.String("email", req.Email), zap.String("pin", req.Pin))
	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "mensaje": "usuario registrado"})
}

// Login verifies credentials and returns the joined profile. Login is
// stateless; there is no session or token to hold on to.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "mensaje": "solicitud inválida"})
	}

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "tenant no disponible"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	profile, err := store.Login(db, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrBadCredentials) {
			log.Error("Invalid credentials", zap.String("email", req.Email))
			prometheus.RecordAuthError("invalid_credentials")
			return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error", "mensaje": "credenciales inválidas"})
		}
		log.Error("Login failed", zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "login fallido"})
	}

	log.Info("User logged in", zap.String("email", req.Email), zap.String("pin", profile.Pin))
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "usuario": profile})
}

// EditarPerfil updates the member profile paired to the given email
func EditarPerfil(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email     string `json:"email"`
		Nombre    string `json:"nombre"`
		Apellido1 string `json:"apellido1"`
		Apellido2 string `json:"apellido2"`
		Pin       string `json:"pin"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse profile request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "mensaje": "solicitud inválida"})
	}

	if req.Email == "" {
		prometheus.RecordAuthError("incomplete_profile_edit")
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "mensaje": "email es obligatorio"})
	}

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "tenant no disponible"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := store.EditProfile(db, req.Email, req.Nombre, req.Apellido1, req.Apellido2, req.Pin); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			prometheus.RecordAuthError("user_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"status": "error", "mensaje": "usuario no encontrado"})
		case errors.Is(err, store.ErrConflict):
			prometheus.RecordAuthError("pin_conflict")
			return c.JSON(http.StatusConflict, echo.Map{"status": "error", "mensaje": "el pin ya está en uso"})
		default:
			log.Error("Failed to edit profile", zap.Error(err))
			prometheus.RecordAuthError("db_error")
			return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "edición fallida"})
		}
	}

	log.Info("Profile updated", zap.String("email", req.Email))
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "mensaje": "perfil actualizado"})
}

// Contactos lists every member except the caller, with unread badges
func Contactos(c echo.Context) error {
	log := logger.FromContext(c)

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant unavailable"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	contacts, err := store.Contacts(db, c.Param("mi_pin"))
	if err != nil {
		log.Error("Failed to list contacts", zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "contacts unavailable"})
	}

	return c.JSON(http.StatusOK, echo.Map{"contactos": contacts})
}
