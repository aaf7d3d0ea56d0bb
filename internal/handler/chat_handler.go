package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kerm1977/altair/internal/model"
	"github.com/kerm1977/altair/internal/store"
	"github.com/kerm1977/altair/pkg/logger"
	"github.com/kerm1977/altair/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// chatMessageResponse is a stored message plus its display-time labels.
type chatMessageResponse struct {
	model.ChatMessage
	Fecha      string `json:"fecha"`
	FechaLarga string `json:"fecha_larga"`
}

// ChatMensajes returns one conversation in chronological order, marking
// the caller's unread messages from the other pin as read first.
func ChatMensajes(c echo.Context) error {
	log := logger.FromContext(c)

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant unavailable"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	msgs, err := store.Conversation(db, c.Param("mi_pin"), c.Param("otro_pin"), cfg.Chat.PageLimit)
	if err != nil {
		log.Error("Failed to fetch conversation", zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "conversation unavailable"})
	}

	out := make([]chatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		fecha, fechaLarga := store.TimeLabels(m.CreatedAt)
		out = append(out, chatMessageResponse{ChatMessage: m, Fecha: fecha, FechaLarga: fechaLarga})
	}

	return c.JSON(http.StatusOK, out)
}

// ChatEnviar stores a new message from a multipart form, with an optional
// attachment. A disallowed attachment extension drops the file but still
// saves the message text.
func ChatEnviar(c echo.Context) error {
	log := logger.FromContext(c)
	slug := c.Param("slug")

	senderPin := c.FormValue("sender_pin")
	receiverPin := c.FormValue("receiver_pin")
	if senderPin == "" || receiverPin == "" {
		prometheus.RecordAuthError("incomplete_message")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  "error",
			"mensaje": "sender_pin y receiver_pin son obligatorios",
		})
	}

	db, err := registry.Resolve(slug)
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "tenant no disponible"})
	}

	fileURL, fileType := "", ""
	if fh, ferr := c.FormFile("file"); ferr == nil && fh != nil {
		fileURL, fileType, err = saveAttachment(slug, fh)
		if err != nil {
			log.Error("Failed to store attachment", zap.Error(err))
			prometheus.RecordAuthError("attachment_failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "no se pudo guardar el archivo"})
		}
		if fileURL == "" {
			log.Warn("Attachment rejected by extension", zap.String("filename", fh.Filename))
		}
	}

	msg := model.ChatMessage{
		Nombre:      c.FormValue("nombre"),
		SenderPin:   senderPin,
		ReceiverPin: receiverPin,
		Texto:       c.FormValue("texto"),
		FilePath:    fileURL,
		FileType:    fileType,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := store.SendMessage(db, &msg); err != nil {
		log.Error("Failed to send message", zap.Error(err))
		prometheus.RecordAuthError("message_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "mensaje no enviado"})
	}

	prometheus.MessageSentCounter.Inc()
	log.Info("Message stored",
		zap.Uint("id", msg.ID),
		zap.String("sender_pin", senderPin),
		zap.String("receiver_pin", receiverPin),
		zap.Bool("attachment", fileURL != ""))

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "id": msg.ID, "file_url": fileURL})
}

// ChatUnread returns the total unread count for a pin across all senders
func ChatUnread(c echo.Context) error {
	log := logger.FromContext(c)

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant unavailable"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	return c.JSON(http.StatusOK, echo.Map{
		"total_unread": store.UnreadTotal(db, c.Param("mi_pin")),
	})
}

// ChatBorrarMensaje hard-deletes one message for all participants
func ChatBorrarMensaje(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "mensaje": "id inválido"})
	}

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "tenant no disponible"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteMessage(db, uint(id)); err != nil {
		log.Error("Failed to delete message", zap.Uint64("id", id), zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "mensaje no eliminado"})
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// ChatLimpiar hard-deletes the whole conversation between two pins
func ChatLimpiar(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		MiPin   string `json:"mi_pin"`
		OtroPin string `json:"otro_pin"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "mensaje": "solicitud inválida"})
	}
	if req.MiPin == "" || req.OtroPin == "" {
		prometheus.RecordAuthError("incomplete_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "mensaje": "mi_pin y otro_pin son obligatorios"})
	}

	db, err := registry.Resolve(c.Param("slug"))
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordAuthError("provisioning_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "tenant no disponible"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.ClearConversation(db, req.MiPin, req.OtroPin); err != nil {
		log.Error("Failed to clear conversation", zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "mensaje": "conversación no eliminada"})
	}

	log.Info("Conversation cleared", zap.String("mi_pin", req.MiPin), zap.String("otro_pin", req.OtroPin))
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
