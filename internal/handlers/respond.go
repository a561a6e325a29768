package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/services/storage"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a bounded JSON body. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// language returns the caller's preferred language for localized text
func language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return r.Header.Get("Accept-Language")
}

// base carries what every handler needs to answer in the caller's language
type base struct {
	localizer *i18n.Localizer
	logger    *logrus.Logger
}

func (b base) text(r *http.Request, id string, data map[string]interface{}) string {
	return b.localizer.Get(language(r), id, data)
}

func (b base) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, http.StatusBadRequest, b.text(r, i18n.MsgInvalidRequest, map[string]interface{}{"Detail": err.Error()}))
}

// storageError maps storage failures to status codes; failedID names the operation-specific message
func (b base) storageError(w http.ResponseWriter, r *http.Request, err error, failedID string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, b.text(r, i18n.MsgTaskNotFound, nil))
	case errors.Is(err, storage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, b.text(r, i18n.MsgStorageUnavailable, nil))
	default:
		b.logger.WithError(err).WithField("path", r.URL.Path).Error("Storage request failed")
		writeError(w, http.StatusInternalServerError, b.text(r, failedID, nil))
	}
}
