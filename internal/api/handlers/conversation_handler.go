package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/dianihealth/carebridge/internal/api/middlewares"
	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/models"
)

type ConversationHandler struct {
	dbclient core.DbClient
}

func NewConversationHandler(dbclient core.DbClient) *ConversationHandler {
	return &ConversationHandler{dbclient: dbclient}
}

type createConversationRequest struct {
	Title    string               `json:"title"`
	Messages []models.ChatMessage `json:"messages"`
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Title == "" {
		req.Title = "Nueva conversación"
	}
	if req.Messages == nil {
		req.Messages = []models.ChatMessage{}
	}

	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Messages:  req.Messages,
		CreatedAt: time.Now(),
	}
	if err := h.dbclient.CreateConversation(r.Context(), conv); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	convs, err := h.dbclient.ListConversationsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.ownedConversation(w, r)
	if conv == nil || err != nil {
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type updateTitleRequest struct {
	Title string `json:"title"`
}

func (h *ConversationHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	conv, err := h.ownedConversation(w, r)
	if conv == nil || err != nil {
		return
	}

	var req updateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := h.dbclient.UpdateConversationTitle(r.Context(), conv.ID, req.Title); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	conv.Title = req.Title
	writeJSON(w, http.StatusOK, conv)
}

type updateMessagesRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

// UpdateMessages replaces the stored transcript wholesale: the client owns
// the document and sends the complete history each time.
func (h *ConversationHandler) UpdateMessages(w http.ResponseWriter, r *http.Request) {
	conv, err := h.ownedConversation(w, r)
	if conv == nil || err != nil {
		return
	}

	var req updateMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Messages == nil {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}
	if err := h.dbclient.UpdateConversationMessages(r.Context(), conv.ID, req.Messages); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	conv.Messages = req.Messages
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conv, err := h.ownedConversation(w, r)
	if conv == nil || err != nil {
		return
	}
	if err := h.dbclient.DeleteConversation(r.Context(), conv.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedConversation loads the conversation in the URL and checks it belongs
// to the caller. On any failure it writes the response and returns nil.
func (h *ConversationHandler) ownedConversation(w http.ResponseWriter, r *http.Request) (*models.Conversation, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil
	}
	conv, err := h.dbclient.GetConversationByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, err
	}
	if conv == nil || conv.UserID != userID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return nil, nil
	}
	return conv, nil
}
