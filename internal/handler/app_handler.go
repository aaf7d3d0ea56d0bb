package handler

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/kerm1977/altair/pkg/logger"
	"github.com/kerm1977/altair/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Index answers the root diagnostic call with the tenants present on disk.
func Index(c echo.Context) error {
	apps := []string{}
	if entries, err := os.ReadDir(cfg.Storage.DataDir); err == nil {
		for _, entry := range entries {
			if name := entry.Name(); strings.HasSuffix(name, ".db") {
				apps = append(apps, strings.TrimSuffix(name, ".db"))
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":                "online",
		"motor":                 "Altair Multi-App",
		"apps_activas_en_disco": apps,
		"ayuda":                 "Visita /api/NombreDeTuApp/crear_ahora para generar una nueva base de datos.",
	})
}

// CrearAhora forces provisioning of the slug's tenant database.
func CrearAhora(c echo.Context) error {
	log := logger.FromContext(c)
	slug := c.Param("slug")

	if _, err := registry.Resolve(slug); err != nil {
		log.Error("Failed to provision tenant", zap.String("slug", slug), zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  "error",
			"mensaje": "no se pudo crear la base de datos",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":       "ok",
		"mensaje":      fmt.Sprintf("¡Éxito! La base de datos '%s.db' ha sido creada y configurada en el servidor.", slug),
		"proximo_paso": "Ya puedes ver el ranking en /api/" + slug + "/ranking",
	})
}
