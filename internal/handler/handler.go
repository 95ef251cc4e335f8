package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/integrations/accounting"
	"github.com/Jagan515/tms-server/internal/middleware"
	"github.com/Jagan515/tms-server/internal/service"
)

type Handler struct {
	svc      *service.Service
	receipts *accounting.ReceiptExporter
	validate *validator.Validate
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, receipts *accounting.ReceiptExporter, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, receipts: receipts, validate: validator.New(), log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps service errors onto HTTP statuses
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperr.IsValidation(err):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case apperr.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, err.Error())
	case apperr.IsForbidden(err):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case apperr.IsIndeterminate(err):
		h.log.WithField("path", r.URL.Path).Errorf("Indeterminate write: %v", err)
		writeMessage(w, http.StatusInternalServerError, "operation partially indeterminate, manual reconciliation required")
	default:
		h.log.WithField("path", r.URL.Path).Errorf("Request failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads and validates a JSON body
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.NewValidation("invalid request body: %v", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperr.NewValidation("invalid request: %v", err)
	}
	return nil
}

// callerID returns the authenticated user's id
func callerID(r *http.Request) (uuid.UUID, error) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		return uuid.Nil, apperr.NewForbidden("not authenticated")
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, apperr.NewForbidden("invalid caller")
	}
	return id, nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, apperr.NewValidation("invalid %s", name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" || raw == "all" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.NewValidation("invalid %s", name)
	}
	return &id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.NewValidation("invalid %s", name)
	}
	return n, nil
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
