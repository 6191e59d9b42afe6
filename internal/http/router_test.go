package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hklets/go-rental-backend/internal/auth"
	"github.com/hklets/go-rental-backend/internal/config"
	"github.com/hklets/go-rental-backend/internal/repo"
)

const testJWTSecret = "router-test-secret"

// memStorage is an in-memory stand-in for object storage that also resolves
// keys to deterministic fake URLs.
type memStorage struct {
	blobs map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{blobs: map[string][]byte{}} }

func (m *memStorage) Save(_ context.Context, key string, body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.blobs[key] = b
	return nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

func (m *memStorage) Resolve(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key + "?sig=test", nil
}

func testConfig() config.Config {
	return config.Config{
		GinMode:     gin.TestMode,
		APIBasePath: "/api/v1",
		JWTSecret:   testJWTSecret,
		S3:          config.S3Config{Bucket: "test-bucket"},
		Upload: config.UploadConfig{
			MaxImageBytes: 5 << 20,
			MaxVideoBytes: 50 << 20,
		},
		SignedURLTTL: time.Hour,
		Security:     config.SecurityConfig{},
		OTEL:         config.OTELConfig{ServiceName: "router-test"},
	}
}

func newAPI(t *testing.T) (*gin.Engine, *memStorage, *gorm.DB) {
	t.Helper()
	return newAPIWith(t, testConfig())
}

func newAPIWith(t *testing.T, cfg config.Config) (*gin.Engine, *memStorage, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("router_test_%d.db", time.Now().UnixNano()))
	db, err := repo.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	store := newMemStorage()
	r := gin.New()
	RegisterRoutes(r, db, store, store, cfg)
	return r, store, db
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.IssueToken(testJWTSecret, userID, userID+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return "Bearer " + tok
}

func doJSON(r *gin.Engine, method, path, authz string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createProperty(t *testing.T, r *gin.Engine, owner string, payload map[string]any) map[string]any {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/v1/properties", bearer(t, owner), payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("create property: status %d body %s", w.Code, w.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func shaTinFlat() map[string]any {
	return map[string]any{
		"title":    "Bright 2BR",
		"price":    "15000",
		"size":     600,
		"district": "Sha Tin",
	}
}

func TestHealthAndFallbacks(t *testing.T) {
	r, _, _ := newAPI(t)

	w := doJSON(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/nowhere", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("no route: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Fatalf("missing envelope: %s", w.Body.String())
	}

	w = doJSON(r, http.MethodPatch, "/api/v1/properties", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no method: %d", w.Code)
	}
}

func TestPropertyLifecycle(t *testing.T) {
	r, _, _ := newAPI(t)

	// Create requires auth.
	w := doJSON(r, http.MethodPost, "/api/v1/properties", "", shaTinFlat())
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: %d", w.Code)
	}

	created := createProperty(t, r, "owner", shaTinFlat())
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("no id in response: %v", created)
	}
	if created["owner_id"] != "owner" {
		t.Fatalf("ownership must come from the session: %v", created)
	}

	// Public read without credentials.
	w = doJSON(r, http.MethodGet, "/api/v1/properties/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("public get: %d", w.Code)
	}

	// Non-owner update is forbidden and changes nothing.
	w = doJSON(r, http.MethodPut, "/api/v1/properties/"+id, bearer(t, "intruder"), map[string]any{"title": "Hacked"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("intruder update: %d", w.Code)
	}

	// Owner partial update.
	w = doJSON(r, http.MethodPut, "/api/v1/properties/"+id, bearer(t, "owner"), map[string]any{"price": "16000"})
	if w.Code != http.StatusOK {
		t.Fatalf("owner update: %d body %s", w.Code, w.Body.String())
	}
	var updated map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated["price"] != "16000" || updated["title"] != "Bright 2BR" {
		t.Fatalf("partial update wrong: %v", updated)
	}

	// my-listings sees it; a stranger's does not.
	w = doJSON(r, http.MethodGet, "/api/v1/my-listings", bearer(t, "owner"), nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), id) {
		t.Fatalf("my-listings: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodGet, "/api/v1/my-listings", bearer(t, "someone-else"), nil)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), id) {
		t.Fatalf("foreign my-listings: %d %s", w.Code, w.Body.String())
	}

	// Owner delete.
	w = doJSON(r, http.MethodDelete, "/api/v1/properties/"+id, bearer(t, "owner"), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	w = doJSON(r, http.MethodGet, "/api/v1/properties/"+id, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestPropertyListing_FilterScenario(t *testing.T) {
	r, _, _ := newAPI(t)

	flat := shaTinFlat()
	createProperty(t, r, "owner", flat)

	posh := shaTinFlat()
	posh["title"] = "Posh"
	posh["price"] = "32000"
	posh["size"] = 1200
	createProperty(t, r, "owner", posh)

	wanChai := shaTinFlat()
	wanChai["title"] = "Wan Chai"
	wanChai["district"] = "Wan Chai"
	createProperty(t, r, "owner", wanChai)

	w := doJSON(r, http.MethodGet, "/api/v1/properties?district=Sha+Tin&minPrice=10000&maxPrice=20000", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0]["title"] != "Bright 2BR" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestPropertyResponse_NeverLeaksBareKeys(t *testing.T) {
	r, _, _ := newAPI(t)

	flat := shaTinFlat()
	flat["photos"] = []string{"property-images/owner/1-a.jpg"}
	flat["virtual_tour_key"] = "virtual-tour-videos/owner/1-t.mp4"
	created := createProperty(t, r, "owner", flat)

	photos, _ := created["photos"].([]any)
	if len(photos) != 1 || !strings.HasPrefix(photos[0].(string), "https://signed.example/") {
		t.Fatalf("photos not resolved: %v", created["photos"])
	}
	if url, _ := created["virtual_tour_url"].(string); !strings.HasPrefix(url, "https://signed.example/") {
		t.Fatalf("tour not resolved: %v", created)
	}
	// Key columns must not appear in the payload.
	if _, leaked := created["virtual_tour_key"]; leaked {
		t.Fatalf("raw key leaked: %v", created)
	}
}

func TestChatFlow(t *testing.T) {
	r, _, _ := newAPI(t)

	created := createProperty(t, r, "owner", shaTinFlat())
	propID := created["id"].(string)

	// Owner cannot chat with themselves.
	w := doJSON(r, http.MethodGet, "/api/v1/chats/property/"+propID+"/start", bearer(t, "owner"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self chat: %d", w.Code)
	}

	// Tenant starts; a second start returns the same chat.
	w = doJSON(r, http.MethodGet, "/api/v1/chats/property/"+propID+"/start", bearer(t, "tenant"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start chat: %d %s", w.Code, w.Body.String())
	}
	var chat map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &chat)
	chatID := chat["id"].(string)

	w = doJSON(r, http.MethodGet, "/api/v1/chats/property/"+propID+"/start", bearer(t, "tenant"), nil)
	var again map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &again)
	if again["id"] != chatID {
		t.Fatalf("start is not idempotent: %v vs %v", again["id"], chatID)
	}

	// Send and read messages.
	w = doJSON(r, http.MethodPost, "/api/v1/chats/"+chatID+"/messages", bearer(t, "tenant"),
		map[string]any{"content": "Is it available?"})
	if w.Code != http.StatusCreated {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodPost, "/api/v1/chats/"+chatID+"/messages", bearer(t, "owner"),
		map[string]any{"content": "Yes, come see it."})
	if w.Code != http.StatusCreated {
		t.Fatalf("owner send: %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/chats/"+chatID+"/messages", bearer(t, "tenant"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list messages: %d", w.Code)
	}
	var msgs []map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &msgs)
	if len(msgs) != 2 || msgs[0]["content"] != "Is it available?" {
		t.Fatalf("unexpected messages: %v", msgs)
	}

	// A third party can neither read nor write.
	w = doJSON(r, http.MethodGet, "/api/v1/chats/"+chatID+"/messages", bearer(t, "stranger"), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger read: %d", w.Code)
	}
	w = doJSON(r, http.MethodPost, "/api/v1/chats/"+chatID+"/messages", bearer(t, "stranger"),
		map[string]any{"content": "hi"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger send: %d", w.Code)
	}

	// Both participants see the chat with the preview set.
	w = doJSON(r, http.MethodGet, "/api/v1/chats", bearer(t, "owner"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list chats: %d", w.Code)
	}
	var chats []map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &chats)
	if len(chats) != 1 || chats[0]["last_message"] != "Yes, come see it." {
		t.Fatalf("unexpected chats: %v", chats)
	}
	if chats[0]["property_title"] != "Bright 2BR" {
		t.Fatalf("property join missing: %v", chats[0])
	}
}

func TestUploadEndpoints(t *testing.T) {
	r, store, _ := newAPI(t)

	buildMultipart := func(field, filename, content string) (*bytes.Buffer, string) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fmt.Fprint(fw, content)
		_ = mw.Close()
		return buf, mw.FormDataContentType()
	}

	// Unauthenticated upload is rejected.
	body, ct := buildMultipart("image", "a.jpg", "data")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/property-image", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated upload: %d", w.Code)
	}

	// Authenticated upload returns a stable key and lands in storage.
	body, ct = buildMultipart("image", "flat photo.jpg", "jpegdata")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/property-image", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "owner"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var res map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !strings.HasPrefix(res["key"], "property-images/owner/") || !strings.HasSuffix(res["key"], "-flat_photo.jpg") {
		t.Fatalf("unexpected key %q", res["key"])
	}
	if _, ok := store.blobs[res["key"]]; !ok {
		t.Fatalf("blob not stored under %q", res["key"])
	}

	// Wrong field name.
	body, ct = buildMultipart("file", "a.jpg", "data")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/property-image", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "owner"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "no_file") {
		t.Fatalf("missing field: %d %s", w.Code, w.Body.String())
	}
}

func TestUpload_BodyOverCapIsFileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxImageBytes = 10
	r, store, _ := newAPIWith(t, cfg)

	// The whole request body blows past ceiling + multipart framing, so the
	// body cap trips before the form is even parsed. That must still surface
	// as an oversized file, not a missing one.
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("image", "big.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(bytes.Repeat([]byte("x"), 2<<20)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/property-image", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, "owner"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["code"] != "file_too_large" {
		t.Fatalf("code = %v", resp["code"])
	}
	if mb, _ := resp["max_bytes"].(float64); int64(mb) != 10 {
		t.Fatalf("max_bytes = %v, want 10", resp["max_bytes"])
	}
	if len(store.blobs) != 0 {
		t.Fatalf("storage touched: %v", store.blobs)
	}
}

func TestValidationErrorsSurfaceFields(t *testing.T) {
	r, _, _ := newAPI(t)

	bad := map[string]any{"title": "  ", "price": "cheap", "size": 0, "district": "Atlantis"}
	// All four fields are flagged in one pass, size included.
	w := doJSON(r, http.MethodPost, "/api/v1/properties", bearer(t, "owner"), bad)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation_failed") {
		t.Fatalf("missing code: %s", w.Body.String())
	}
	for _, f := range []string{"district", "price"} {
		if !strings.Contains(w.Body.String(), f) {
			t.Fatalf("field %q missing from %s", f, w.Body.String())
		}
	}
}
