package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/hklets/go-rental-backend/internal/domain"
	"github.com/hklets/go-rental-backend/internal/http/middleware"
	"github.com/hklets/go-rental-backend/internal/services"
)

//
// Fakes
//

type fakePropertySvc struct {
	lastFilter services.PropertyFilter
	listOut    []services.PropertyView
	err        error
}

func (f *fakePropertySvc) List(_ context.Context, filter services.PropertyFilter) ([]services.PropertyView, error) {
	f.lastFilter = filter
	return f.listOut, f.err
}
func (f *fakePropertySvc) Get(context.Context, string) (*services.PropertyView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.PropertyView{}, nil
}
func (f *fakePropertySvc) Create(_ context.Context, ownerID string, in services.PropertyInput) (*services.PropertyView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.PropertyView{Property: domain.Property{ID: "p1", OwnerID: ownerID, Title: in.Title}}, nil
}
func (f *fakePropertySvc) Update(context.Context, string, string, services.PropertyPatch) (*services.PropertyView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.PropertyView{}, nil
}
func (f *fakePropertySvc) Delete(context.Context, string, string) error { return f.err }
func (f *fakePropertySvc) ListByOwner(context.Context, string) ([]services.PropertyView, error) {
	return f.listOut, f.err
}

type fakeChatSvc struct {
	err error
}

func (f *fakeChatSvc) StartOrGet(context.Context, string, string) (*domain.Chat, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Chat{ID: "c1"}, nil
}
func (f *fakeChatSvc) ListForUser(context.Context, string) ([]services.ChatSummary, error) {
	return nil, f.err
}
func (f *fakeChatSvc) ListMessages(context.Context, string, string) ([]domain.Message, error) {
	return nil, f.err
}
func (f *fakeChatSvc) Send(context.Context, string, string, string) (*domain.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Message{ID: "m1"}, nil
}

type fakeUploadSvc struct {
	err          error
	lastFilename string
	lastSize     int64
}

func (f *fakeUploadSvc) ImageCeiling() int64 { return 5 << 20 }
func (f *fakeUploadSvc) VideoCeiling() int64 { return 200 << 20 }

func (f *fakeUploadSvc) UploadImage(_ context.Context, _, filename string, size int64, _ io.Reader) (*services.UploadResult, error) {
	f.lastFilename, f.lastSize = filename, size
	if f.err != nil {
		return nil, f.err
	}
	return &services.UploadResult{Key: "property-images/u/1-" + filename, Filename: filename}, nil
}
func (f *fakeUploadSvc) UploadVideo(_ context.Context, _, filename string, size int64, _ io.Reader) (*services.UploadResult, error) {
	f.lastFilename, f.lastSize = filename, size
	if f.err != nil {
		return nil, f.err
	}
	return &services.UploadResult{Key: "virtual-tour-videos/u/1-" + filename, Filename: filename}, nil
}

type fixture struct {
	r      *gin.Engine
	props  *fakePropertySvc
	chats  *fakeChatSvc
	upload *fakeUploadSvc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{props: &fakePropertySvc{}, chats: &fakeChatSvc{}, upload: &fakeUploadSvc{}}
	h := New(f.props, f.chats, f.upload)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger())
	r.GET("/properties", h.ListProperties)
	r.GET("/properties/:id", h.GetProperty)
	r.POST("/properties", h.CreateProperty)
	r.DELETE("/properties/:id", h.DeleteProperty)
	r.GET("/chats/property/:propertyId/start", h.StartChat)
	r.POST("/chats/:id/messages", h.SendMessage)
	r.POST("/uploads/property-image", h.UploadImage)
	r.POST("/uploads/virtual-tour-video", h.UploadVideo)
	f.r = r
	return f
}

func (f *fixture) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, w.Body.String())
	}
	return resp
}

//
// Tests
//

func TestListProperties_ParsesFilters(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/properties?district=Sha+Tin&minPrice=10000&maxPrice=20000.50&minSize=300&maxSize=900", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	got := f.props.lastFilter
	if got.District != "Sha Tin" {
		t.Fatalf("district = %q", got.District)
	}
	if got.MinPrice == nil || got.MinPrice.String() != "10000" {
		t.Fatalf("minPrice = %v", got.MinPrice)
	}
	if got.MaxPrice == nil || got.MaxPrice.String() != "20000.5" {
		t.Fatalf("maxPrice = %v", got.MaxPrice)
	}
	if got.MinSize == nil || *got.MinSize != 300 || got.MaxSize == nil || *got.MaxSize != 900 {
		t.Fatalf("size bounds = %v/%v", got.MinSize, got.MaxSize)
	}
}

func TestListProperties_GarbageFiltersIgnored(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/properties?minPrice=lots&minSize=big", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.props.lastFilter.MinPrice != nil || f.props.lastFilter.MinSize != nil {
		t.Fatalf("garbage filters should be nil: %+v", f.props.lastFilter)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"property not found", services.ErrPropertyNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"chat not found", services.ErrChatNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{"validation", &services.ValidationError{Fields: []string{"district"}}, http.StatusBadRequest, ErrCodeValidation},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.props.err = tc.err

			w := f.do(http.MethodGet, "/properties/p1", nil, "")
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			resp := decodeErr(t, w)
			if resp.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tc.wantCode)
			}
			if resp.RequestID == "" {
				t.Fatal("request_id missing")
			}
		})
	}
}

func TestServiceErrorMapping_ValidationCarriesFields(t *testing.T) {
	f := newFixture(t)
	f.props.err = &services.ValidationError{Fields: []string{"title", "price"}}

	body := `{"title":"x","price":"y","size":1,"district":"Sha Tin"}`
	w := f.do(http.MethodPost, "/properties", strings.NewReader(body), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeErr(t, w)
	if len(resp.Fields) != 2 || resp.Fields[0] != "title" {
		t.Fatalf("fields = %v", resp.Fields)
	}
}

func TestStartChat_SelfChatIsBadRequest(t *testing.T) {
	f := newFixture(t)
	f.chats.err = services.ErrSelfChat

	w := f.do(http.MethodGet, "/chats/property/p1/start", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeErr(t, w); resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestSendMessage_InvalidJSON(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/chats/c1/messages", strings.NewReader("{nope"), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSendMessage_EmptyContentMapsToValidation(t *testing.T) {
	f := newFixture(t)
	f.chats.err = services.ErrEmptyMessage

	w := f.do(http.MethodPost, "/chats/c1/messages", strings.NewReader(`{"content":"   "}`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeErr(t, w)
	if resp.Code != ErrCodeValidation || len(resp.Fields) != 1 || resp.Fields[0] != "content" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestDeleteProperty_NoContent(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodDelete, "/properties/p1", nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("204 must have empty body, got %q", w.Body.String())
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf, mw.FormDataContentType()
}

func TestUploadImage_Success(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartBody(t, "image", "flat.jpg", "jpegdata")

	w := f.do(http.MethodPost, "/uploads/property-image", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var res services.UploadResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(res.Key, "property-images/") {
		t.Fatalf("key = %q", res.Key)
	}
	if f.upload.lastFilename != "flat.jpg" || f.upload.lastSize != int64(len("jpegdata")) {
		t.Fatalf("service got %q/%d", f.upload.lastFilename, f.upload.lastSize)
	}
}

func TestUploadImage_MissingField(t *testing.T) {
	f := newFixture(t)
	// Field name "file" instead of the required "image".
	body, ct := multipartBody(t, "file", "flat.jpg", "jpegdata")

	w := f.do(http.MethodPost, "/uploads/property-image", body, ct)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeErr(t, w); resp.Code != ErrCodeNoFile {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestUploadVideo_TooLarge(t *testing.T) {
	f := newFixture(t)
	f.upload.err = &services.FileTooLargeError{MaxBytes: 200 << 20}
	body, ct := multipartBody(t, "video", "tour.mp4", "videodata")

	w := f.do(http.MethodPost, "/uploads/virtual-tour-video", body, ct)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeErr(t, w)
	if resp.Code != ErrCodeFileTooLarge || resp.MaxBytes != 200<<20 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}
