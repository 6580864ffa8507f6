package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dianihealth/carebridge/internal/chatbot"
	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

type ChatHandler struct {
	dispatcher *chatbot.Dispatcher
	log        *logger.Logger
}

func NewChatHandler(dispatcher *chatbot.Dispatcher, log *logger.Logger) *ChatHandler {
	return &ChatHandler{dispatcher: dispatcher, log: log}
}

type chatRequest struct {
	Messages     []core.Message `json:"messages"`
	Language     string         `json:"language"`
	SystemPrompt string         `json:"systemPrompt"`
	QueryType    string         `json:"queryType"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// Chat answers one conversational turn, grounded either in the patient
// database or in web search depending on queryType.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}
	// Anything other than db falls through to the internet branch, missing
	// queryType included.
	if req.Language == "" {
		req.Language = "es"
	}

	content, err := h.dispatcher.Respond(r.Context(), req.Messages, req.Language, req.SystemPrompt, req.QueryType)
	if err != nil {
		var upstream *core.UpstreamError
		switch {
		case errors.Is(err, chatbot.ErrNoCompletionKey):
			writeError(w, http.StatusInternalServerError, "No OpenAI API key configured.")
		case errors.As(err, &upstream):
			// Forward the provider's status so callers can tell quota and
			// auth failures apart from our own errors.
			writeError(w, upstream.StatusCode, upstream.Body)
		default:
			h.log.Error("chat turn failed", "queryType", req.QueryType, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Content: content})
}
