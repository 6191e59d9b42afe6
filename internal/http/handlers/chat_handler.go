// Chat HTTP handlers.
//
// Endpoints:
//   - GET  /chats                          (caller's conversation list)
//   - GET  /chats/property/:propertyId/start  (idempotent start-or-get)
//   - GET  /chats/:id/messages             (participant-only message log)
//   - POST /chats/:id/messages             (participant-only send)
//
// All chat routes require authentication; participation checks live in the
// service layer so the handlers stay transport-thin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SendMessageRequest is the JSON payload for posting a chat message.
type SendMessageRequest struct {
	Content string `json:"content" example:"Is the flat still available?"`
}

// ListChats godoc
// @ID          listChats
// @Summary     List the caller's chats
// @Description Returns every conversation the caller participates in, most recent activity first, joined with the property title and resolved photo URLs.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   services.ChatSummary
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	chats, err := h.chatSvc.ListForUser(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, chats)
}

// StartChat godoc
// @ID          startChat
// @Summary     Start or fetch the chat for a property
// @Description Idempotent: the first call creates the conversation with the property owner, later calls return the same one. Owners cannot open a chat about their own listing.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
// @Param       propertyId  path  string  true  "Property ID"
// @Success     200  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Caller owns the property"
// @Failure     404  {object}  handlers.ErrorResponse  "Property not found"
// @Router      /chats/property/{propertyId}/start [get]
func (h *Handlers) StartChat(c *gin.Context) {
	chat, err := h.chatSvc.StartOrGet(c.Request.Context(), c.Param("propertyId"), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, chat)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List a chat's messages
// @Description Returns messages in creation order. Only the two participants may read them.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  string  true  "Chat ID"
// @Success     200  {array}   domain.Message
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	msgs, err := h.chatSvc.ListMessages(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, msgs)
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a chat message
// @Description Appends a message and updates the chat's last-message preview atomically.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string  true  "Chat ID"
// @Param       body  body  handlers.SendMessageRequest  true  "Message payload"
// @Success     201  {object}  domain.Message
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or oversized content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	msg, err := h.chatSvc.Send(c.Request.Context(), c.Param("id"), userID(c), req.Content)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}
