package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kerm1977/altair/internal/tenant"
	"github.com/kerm1977/altair/pkg/config"
	"github.com/labstack/echo/v4"
	gormlogger "gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (*echo.Echo, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DataDir:     filepath.Join(t.TempDir(), "dbs"),
			UploadDir:   filepath.Join(t.TempDir(), "uploads"),
			BusyTimeout: 5 * time.Second,
			LogLevel:    gormlogger.Silent,
		},
		Server: config.ServerConfig{Port: "0", Env: "test"},
		Seed: config.SeedConfig{
			AdminEmails:   []string{"root@altair.test"},
			AdminPassword: "secreto",
		},
		Chat: config.ChatConfig{PageLimit: 50},
	}

	Init(tenant.NewRegistry(cfg), cfg)

	e := echo.New()
	Routes(e)
	return e, cfg
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doMultipart(t *testing.T, e *echo.Echo, path string, fields map[string]string, fileName string, fileContent []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %q: %v", k, err)
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(fileContent); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode list response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestEndToEndScenario(t *testing.T) {
	e, _ := newTestServer(t)

	// Register Ana on the demo tenant; this provisions the database.
	rec := doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{
		"email": "a@x.com", "password": "p1", "nombre": "Ana", "apellido1": "Lee", "pin": "111",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("registro status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Same credentials log in and show zero points.
	rec = doJSON(t, e, http.MethodPost, "/api/demo/login", map[string]string{
		"email": "a@x.com", "password": "p1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	usuario := decode(t, rec)["usuario"].(map[string]interface{})
	if usuario["puntos"].(float64) != 0 {
		t.Errorf("puntos = %v, want 0", usuario["puntos"])
	}
	if usuario["pin"] != "111" {
		t.Errorf("pin = %v, want 111", usuario["pin"])
	}

	// A partner account to chat with.
	rec = doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{
		"email": "b@x.com", "password": "p2", "nombre": "Beto", "apellido1": "Mora", "pin": "222",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("second registro status = %d", rec.Code)
	}

	// Send hola from 111 to 222.
	rec = doMultipart(t, e, "/api/demo/chat/enviar", map[string]string{
		"nombre": "Ana", "sender_pin": "111", "receiver_pin": "222", "texto": "hola",
	}, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("enviar status = %d, body %s", rec.Code, rec.Body.String())
	}

	// One unread for 222 before the fetch.
	rec = doJSON(t, e, http.MethodGet, "/api/demo/chat/unread/222", nil)
	if got := decode(t, rec)["total_unread"].(float64); got != 1 {
		t.Errorf("total_unread before fetch = %v, want 1", got)
	}

	// Fetching as 222 returns the message already marked read.
	rec = doJSON(t, e, http.MethodGet, "/api/demo/chat/222/111", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat fetch status = %d", rec.Code)
	}
	msgs := decodeList(t, rec)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0]["texto"] != "hola" {
		t.Errorf("texto = %v, want hola", msgs[0]["texto"])
	}
	if msgs[0]["is_read"] != true {
		t.Error("message should be read after receiver fetch")
	}
	if msgs[0]["fecha"] == "" {
		t.Error("missing short time label")
	}

	// And the unread badge is gone.
	rec = doJSON(t, e, http.MethodGet, "/api/demo/chat/unread/222", nil)
	if got := decode(t, rec)["total_unread"].(float64); got != 0 {
		t.Errorf("total_unread after fetch = %v, want 0", got)
	}
}

func TestRegistroConflict(t *testing.T) {
	e, _ := newTestServer(t)

	body := map[string]string{
		"email": "a@x.com", "password": "p1", "nombre": "Ana", "apellido1": "Lee", "pin": "111",
	}
	if rec := doJSON(t, e, http.MethodPost, "/api/demo/registro", body); rec.Code != http.StatusCreated {
		t.Fatalf("first registro status = %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodPost, "/api/demo/registro", body); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate registro status = %d, want 409", rec.Code)
	}

	// Missing fields are a validation error, not a conflict.
	rec := doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{"email": "x@x.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("incomplete registro status = %d, want 400", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{
		"email": "a@x.com", "password": "p1", "nombre": "Ana", "apellido1": "Lee", "pin": "111",
	})

	rec := doJSON(t, e, http.MethodPost, "/api/demo/login", map[string]string{
		"email": "a@x.com", "password": "mala",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}
	rec = doJSON(t, e, http.MethodPost, "/api/demo/login", map[string]string{
		"email": "nadie@x.com", "password": "p1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email status = %d, want 401", rec.Code)
	}
}

func TestCrearAhoraAndIndex(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/api/miapp/crear_ahora", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("crear_ahora status = %d", rec.Code)
	}
	if decode(t, rec)["status"] != "ok" {
		t.Fatalf("crear_ahora body: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	apps, ok := decode(t, rec)["apps_activas_en_disco"].([]interface{})
	if !ok {
		t.Fatalf("index body: %s", rec.Body.String())
	}
	found := false
	for _, a := range apps {
		if a == "miapp" {
			found = true
		}
	}
	if !found {
		t.Errorf("index does not list provisioned tenant: %v", apps)
	}
}

func TestRankingIncludesSeedAndNewMembers(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{
		"email": "a@x.com", "password": "p1", "nombre": "Ana", "apellido1": "Lee", "pin": "111",
	})

	rec := doJSON(t, e, http.MethodGet, "/api/demo/ranking", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ranking status = %d", rec.Code)
	}
	members := decodeList(t, rec)
	if len(members) < 2 {
		t.Fatalf("got %d ranking entries, want at least 2", len(members))
	}
	// The seeded demo member holds 100 points and leads a fresh tenant.
	if members[0]["pin"] != "1234" || members[0]["puntos_totales"].(float64) != 100 {
		t.Errorf("unexpected ranking leader: %v", members[0])
	}
}

func TestEventosListsSeed(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(t, e, http.MethodGet, "/api/demo/crear_ahora", nil)

	rec := doJSON(t, e, http.MethodGet, "/api/demo/eventos", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("eventos status = %d", rec.Code)
	}
	events := decodeList(t, rec)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0]["nombre"] != "Primera Caminata demo" {
		t.Errorf("event nombre = %v", events[0]["nombre"])
	}
}

func TestContactosWithUnreadBadges(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{
		"email": "a@x.com", "password": "p1", "nombre": "Ana", "apellido1": "Lee", "pin": "111",
	})
	doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{
		"email": "b@x.com", "password": "p2", "nombre": "Beto", "apellido1": "Mora", "pin": "222",
	})
	doMultipart(t, e, "/api/demo/chat/enviar", map[string]string{
		"nombre": "Ana", "sender_pin": "111", "receiver_pin": "222", "texto": "hola",
	}, "", nil)

	rec := doJSON(t, e, http.MethodGet, "/api/demo/contactos/222", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("contactos status = %d", rec.Code)
	}
	contactos := decode(t, rec)["contactos"].([]interface{})

	var anaBadge float64 = -1
	for _, raw := range contactos {
		ct := raw.(map[string]interface{})
		if ct["pin"] == "222" {
			t.Fatal("caller listed as their own contact")
		}
		if ct["pin"] == "111" {
			anaBadge = ct["no_leidos"].(float64)
		}
	}
	if anaBadge != 1 {
		t.Errorf("unread badge for 111 = %v, want 1", anaBadge)
	}
}

func TestEditarPerfil(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(t, e, http.MethodPost, "/api/demo/registro", map[string]string{
		"email": "a@x.com", "password": "p1", "nombre": "Ana", "apellido1": "Lee", "pin": "111",
	})

	rec := doJSON(t, e, http.MethodPost, "/api/demo/editar_perfil", map[string]string{
		"email": "a@x.com", "nombre": "Anita", "apellido1": "Lee", "apellido2": "Mora", "pin": "555",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("editar_perfil status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/api/demo/login", map[string]string{
		"email": "a@x.com", "password": "p1",
	})
	usuario := decode(t, rec)["usuario"].(map[string]interface{})
	if usuario["nombre"] != "Anita Lee Mora" {
		t.Errorf("nombre after edit = %v", usuario["nombre"])
	}
	if usuario["pin"] != "555" {
		t.Errorf("pin after edit = %v", usuario["pin"])
	}

	rec = doJSON(t, e, http.MethodPost, "/api/demo/editar_perfil", map[string]string{
		"email": "nadie@x.com", "nombre": "X", "apellido1": "Y", "pin": "9",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown email status = %d, want 404", rec.Code)
	}
}

func TestChatEnviarWithAttachment(t *testing.T) {
	e, cfg := newTestServer(t)

	doJSON(t, e, http.MethodGet, "/api/demo/crear_ahora", nil)

	rec := doMultipart(t, e, "/api/demo/chat/enviar", map[string]string{
		"nombre": "Ana", "sender_pin": "111", "receiver_pin": "222", "texto": "foto",
	}, "paisaje.png", []byte("not really a png"))
	if rec.Code != http.StatusOK {
		t.Fatalf("enviar status = %d, body %s", rec.Code, rec.Body.String())
	}

	fileURL, _ := decode(t, rec)["file_url"].(string)
	if !strings.HasPrefix(fileURL, "/static/uploads/chat/") {
		t.Fatalf("file_url = %q", fileURL)
	}

	onDisk := filepath.Join(cfg.Storage.UploadDir, "chat", filepath.Base(fileURL))
	if _, err := os.Stat(onDisk); err != nil {
		t.Errorf("stored attachment missing on disk: %v", err)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/demo/chat/222/111", nil)
	msgs := decodeList(t, rec)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0]["file_type"] != "image" {
		t.Errorf("file_type = %v, want image", msgs[0]["file_type"])
	}
}

func TestChatEnviarRejectsExtensionButKeepsText(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(t, e, http.MethodGet, "/api/demo/crear_ahora", nil)

	rec := doMultipart(t, e, "/api/demo/chat/enviar", map[string]string{
		"nombre": "Ana", "sender_pin": "111", "receiver_pin": "222", "texto": "toma",
	}, "virus.exe", []byte("mz"))
	if rec.Code != http.StatusOK {
		t.Fatalf("enviar status = %d, want 200 (message still saves)", rec.Code)
	}
	if fileURL, _ := decode(t, rec)["file_url"].(string); fileURL != "" {
		t.Errorf("file_url = %q, want empty for rejected extension", fileURL)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/demo/chat/222/111", nil)
	msgs := decodeList(t, rec)
	if len(msgs) != 1 || msgs[0]["texto"] != "toma" {
		t.Fatalf("text message was not stored: %v", msgs)
	}
}

func TestChatEnviarRequiresPins(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doMultipart(t, e, "/api/demo/chat/enviar", map[string]string{
		"nombre": "Ana", "texto": "hola",
	}, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("enviar without pins status = %d, want 400", rec.Code)
	}
}

func TestChatDeleteAndClear(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(t, e, http.MethodGet, "/api/demo/crear_ahora", nil)
	for _, texto := range []string{"uno", "dos", "tres"} {
		doMultipart(t, e, "/api/demo/chat/enviar", map[string]string{
			"sender_pin": "111", "receiver_pin": "222", "texto": texto,
		}, "", nil)
	}

	rec := doJSON(t, e, http.MethodGet, "/api/demo/chat/222/111", nil)
	msgs := decodeList(t, rec)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}

	firstID := int(msgs[0]["id"].(float64))
	rec = doJSON(t, e, http.MethodDelete, "/api/demo/chat/mensaje/"+strconv.Itoa(firstID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/demo/chat/222/111", nil)
	if msgs = decodeList(t, rec); len(msgs) != 2 {
		t.Fatalf("got %d messages after delete, want 2", len(msgs))
	}

	rec = doJSON(t, e, http.MethodPost, "/api/demo/chat/limpiar", map[string]string{
		"mi_pin": "222", "otro_pin": "111",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("limpiar status = %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/demo/chat/222/111", nil)
	if msgs = decodeList(t, rec); len(msgs) != 0 {
		t.Fatalf("got %d messages after limpiar, want 0", len(msgs))
	}
}
