package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pahfm/fleet-backend/internal/http/response"
	"github.com/pahfm/fleet-backend/internal/service"
)

const maxPayloadBytes = 64 << 10

type tokenStatusResponse struct {
	IsActive bool `json:"isActive"`
}

type VerificationTokenHandler struct {
	svc    service.ConfirmationServiceInterface
	logger *slog.Logger
}

func NewVerificationTokenHandler(svc service.ConfirmationServiceInterface, logger *slog.Logger) *VerificationTokenHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationTokenHandler{svc: svc, logger: logger}
}

func (h *VerificationTokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := parseTokenParam(r)
	if !ok {
		writeTokenNotFound(w, r)
		return
	}
	status, err := h.svc.Status(r.Context(), token)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tokenStatusResponse{IsActive: status.IsActive})
}

func (h *VerificationTokenHandler) Patch(w http.ResponseWriter, r *http.Request) {
	token, ok := parseTokenParam(r)
	if !ok {
		writeTokenNotFound(w, r)
		return
	}

	decision, typeErrs, err := decodeDecision(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil || typeErrs != nil {
		// Existence is checked first so an unknown token is a 404 no matter
		// what the body looks like.
		if _, lookupErr := h.svc.Status(r.Context(), token); lookupErr != nil {
			h.writeServiceError(w, r, lookupErr)
			return
		}
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
		response.FieldErrors(w, r, mergeRequiredErrors(typeErrs, decision))
		return
	}

	status, err := h.svc.Submit(r.Context(), token, decision)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tokenStatusResponse{IsActive: status.IsActive})
}

func (h *VerificationTokenHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.FieldErrors(w, r, verr.Fields)
	case service.IsNotFound(err):
		writeTokenNotFound(w, r)
	default:
		h.logger.ErrorContext(r.Context(), "verification token request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to process verification token", nil)
	}
}

func parseTokenParam(r *http.Request) (uuid.UUID, bool) {
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		return uuid.Nil, false
	}
	return token, true
}

func writeTokenNotFound(w http.ResponseWriter, r *http.Request) {
	response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "verification token not found", nil)
}

// decodeDecision reads {"isOk": bool, "comment": string}. An empty body is an
// empty object. Fields present with the wrong JSON type come back as field
// errors rather than a decode failure.
func decodeDecision(body io.Reader) (service.Decision, map[string][]string, error) {
	var decision service.Decision
	raw, err := io.ReadAll(body)
	if err != nil {
		return decision, nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return decision, nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return decision, nil, err
	}

	typeErrs := map[string][]string{}
	if v, ok := fields["isOk"]; ok {
		var isOK bool
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) || json.Unmarshal(v, &isOK) != nil {
			typeErrs["isOk"] = append(typeErrs["isOk"], "Must be a valid boolean.")
		} else {
			decision.IsOK = &isOK
		}
	}
	if v, ok := fields["comment"]; ok {
		var comment string
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) || json.Unmarshal(v, &comment) != nil {
			typeErrs["comment"] = append(typeErrs["comment"], "Not a valid string.")
		} else {
			decision.Comment = &comment
		}
	}
	if len(typeErrs) == 0 {
		return decision, nil, nil
	}
	return decision, typeErrs, nil
}

func mergeRequiredErrors(typeErrs map[string][]string, decision service.Decision) map[string][]string {
	out := make(map[string][]string, 2)
	for k, v := range typeErrs {
		out[k] = v
	}
	var verr *service.ValidationError
	if errors.As(decision.Validate(), &verr) {
		for field, msgs := range verr.Fields {
			if _, already := out[field]; !already {
				out[field] = msgs
			}
		}
	}
	return out
}
