package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vidstats/vidstats/internal/bot"
)

const maxQuestionBytes = 8 << 10

type questionRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string `json:"question"`
	Reply    string `json:"reply"`
}

type translateResponse struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Asker == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	reply := deps.Asker.Handle(r.Context(), bot.Message{Text: question})
	writeJSON(w, http.StatusOK, askResponse{Question: question, Reply: reply})
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "translator is not configured", false, nil)
		return
	}
	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	sqlText, ok := deps.Translator.Translate(r.Context(), question, now())
	if !ok {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "TRANSLATION_FAILED", "question could not be translated", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Question: question, SQL: sqlText})
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var request questionRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	question := strings.TrimSpace(request.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return "", false
	}
	return question, true
}
