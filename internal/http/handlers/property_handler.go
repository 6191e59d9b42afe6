// Property HTTP handlers.
//
// This file exposes REST endpoints for property listings:
//   - GET    /properties        (public list with filters)
//   - GET    /properties/:id    (public detail)
//   - POST   /properties        (create, authenticated)
//   - PUT    /properties/:id    (owner-only partial update)
//   - DELETE /properties/:id    (owner-only delete)
//   - GET    /my-listings       (caller's own properties)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Media in every
// response has already been resolved to presigned URLs by the service.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hklets/go-rental-backend/internal/domain"
	"github.com/hklets/go-rental-backend/internal/http/middleware"
	"github.com/hklets/go-rental-backend/internal/services"
	"github.com/hklets/go-rental-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PropertyService defines listing lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type PropertyService interface {
	List(ctx context.Context, f services.PropertyFilter) ([]services.PropertyView, error)
	Get(ctx context.Context, id string) (*services.PropertyView, error)
	Create(ctx context.Context, ownerID string, in services.PropertyInput) (*services.PropertyView, error)
	Update(ctx context.Context, id, ownerID string, patch services.PropertyPatch) (*services.PropertyView, error)
	Delete(ctx context.Context, id, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]services.PropertyView, error)
}

// ChatService defines chat and messaging operations consumed by HTTP
// handlers.
type ChatService interface {
	StartOrGet(ctx context.Context, propertyID, callerID string) (*domain.Chat, error)
	ListForUser(ctx context.Context, callerID string) ([]services.ChatSummary, error)
	ListMessages(ctx context.Context, chatID, callerID string) ([]domain.Message, error)
	Send(ctx context.Context, chatID, callerID, content string) (*domain.Message, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for properties, chats, and uploads.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	propSvc   PropertyService
	chatSvc   ChatService
	uploadSvc UploadService
}

// New constructs a Handlers instance bound to the given services.
func New(propSvc PropertyService, chatSvc ChatService, uploadSvc UploadService) *Handlers {
	return &Handlers{propSvc: propSvc, chatSvc: chatSvc, uploadSvc: uploadSvc}
}

// userID returns the authenticated caller's id placed in the context by the
// auth middleware. Guarded routes always have it; public routes see "".
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

//
// DTOs
//

// CreatePropertyRequest is the JSON payload for creating a listing. Photos
// and virtual_tour_key hold stable storage keys returned by the upload
// endpoints, not URLs or raw bytes.
type CreatePropertyRequest struct {
	Title          string   `json:"title" example:"Bright 2BR near Che Kung Temple"`
	Description    string   `json:"description"`
	Price          string   `json:"price" example:"15000"`
	Size           int      `json:"size" example:"600"`
	District       string   `json:"district" example:"Sha Tin"`
	Equipment      string   `json:"equipment" example:"air conditioning,washing machine"`
	Photos         []string `json:"photos"`
	VirtualTourKey *string  `json:"virtual_tour_key,omitempty"`
}

// UpdatePropertyRequest is a partial update; absent fields are untouched.
// An empty virtual_tour_key clears the stored tour.
type UpdatePropertyRequest struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Price          *string   `json:"price,omitempty"`
	Size           *int      `json:"size,omitempty"`
	District       *string   `json:"district,omitempty"`
	Equipment      *string   `json:"equipment,omitempty"`
	Photos         *[]string `json:"photos,omitempty"`
	VirtualTourKey *string   `json:"virtual_tour_key,omitempty"`
}

//
// Handlers
//

// ListProperties godoc
// @ID          listProperties
// @Summary     List properties
// @Description Public listing with optional filters. Invalid district values are ignored; price bounds are inclusive exact decimals.
// @Tags        Properties
// @Produce     json
//
// @Param       district  query  string  false  "District (one of the 18 fixed values)"  example(Sha Tin)
// @Param       minPrice  query  string  false  "Inclusive lower price bound"  example(10000)
// @Param       maxPrice  query  string  false  "Inclusive upper price bound"  example(20000)
// @Param       minSize   query  int     false  "Inclusive lower size bound"
// @Param       maxSize   query  int     false  "Inclusive upper size bound"
//
// @Success     200  {array}   services.PropertyView
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /properties [get]
func (h *Handlers) ListProperties(c *gin.Context) {
	f := services.PropertyFilter{
		District: c.Query("district"),
		MinPrice: utils.DecimalPtr(c.Query("minPrice")),
		MaxPrice: utils.DecimalPtr(c.Query("maxPrice")),
		MinSize:  utils.IntPtr(c.Query("minSize")),
		MaxSize:  utils.IntPtr(c.Query("maxSize")),
	}
	props, err := h.propSvc.List(c.Request.Context(), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, props)
}

// GetProperty godoc
// @ID          getProperty
// @Summary     Get a property
// @Tags        Properties
// @Produce     json
// @Param       id  path  string  true  "Property ID"
// @Success     200  {object}  services.PropertyView
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /properties/{id} [get]
func (h *Handlers) GetProperty(c *gin.Context) {
	p, err := h.propSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// CreateProperty godoc
// @ID          createProperty
// @Summary     Create a property
// @Description Creates a listing owned by the caller. Ownership always comes from the session, never the payload.
// @Tags        Properties
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.CreatePropertyRequest  true  "Create property payload"
// @Success     201  {object}  services.PropertyView
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /properties [post]
func (h *Handlers) CreateProperty(c *gin.Context) {
	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.propSvc.Create(c.Request.Context(), userID(c), services.PropertyInput{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		Size:           req.Size,
		District:       req.District,
		Equipment:      req.Equipment,
		Photos:         req.Photos,
		VirtualTourKey: req.VirtualTourKey,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// UpdateProperty godoc
// @ID          updateProperty
// @Summary     Update a property (owner only, partial)
// @Tags        Properties
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string  true  "Property ID"
// @Param       body  body  handlers.UpdatePropertyRequest  true  "Partial update payload"
// @Success     200  {object}  services.PropertyView
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /properties/{id} [put]
func (h *Handlers) UpdateProperty(c *gin.Context) {
	var req UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.propSvc.Update(c.Request.Context(), c.Param("id"), userID(c), services.PropertyPatch{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		Size:           req.Size,
		District:       req.District,
		Equipment:      req.Equipment,
		Photos:         req.Photos,
		VirtualTourKey: req.VirtualTourKey,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeleteProperty godoc
// @ID          deleteProperty
// @Summary     Delete a property (owner only)
// @Description Deletes the listing and, by cascade, its chats and messages.
// @Tags        Properties
// @Security    BearerAuth
// @Param       id  path  string  true  "Property ID"
// @Success     204  "Deleted"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /properties/{id} [delete]
func (h *Handlers) DeleteProperty(c *gin.Context) {
	if err := h.propSvc.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// MyListings godoc
// @ID          myListings
// @Summary     List the caller's own properties
// @Tags        Properties
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  services.PropertyView
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /my-listings [get]
func (h *Handlers) MyListings(c *gin.Context) {
	props, err := h.propSvc.ListByOwner(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, props)
}
