package handler

import (
	"github.com/labstack/echo/v4"
)

// Routes registers every endpoint on the given Echo instance. Kept apart
// from main so integration tests serve the exact production surface.
func Routes(e *echo.Echo) {
	e.GET("/", Index)
	e.GET("/health", HealthCheck)
	e.GET("/metrics", MetricsHandler)

	// Uploaded chat attachments are referenced as /static/uploads/... URLs
	e.Static("/static/uploads", cfg.Storage.UploadDir)

	api := e.Group("/api/:slug")

	api.GET("/crear_ahora", CrearAhora)
	api.GET("/ranking", Ranking)
	api.GET("/eventos", Eventos)

	api.POST("/registro", Registro)
	api.POST("/login", Login)
	api.POST("/editar_perfil", EditarPerfil)
	api.GET("/contactos/:mi_pin", Contactos)

	api.GET("/chat/unread/:mi_pin", ChatUnread)
	api.GET("/chat/:mi_pin/:otro_pin", ChatMensajes)
	api.POST("/chat/enviar", ChatEnviar)
	api.DELETE("/chat/mensaje/:id", ChatBorrarMensaje)
	api.POST("/chat/limpiar", ChatLimpiar)
}
