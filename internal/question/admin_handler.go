package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/logging"
	httperrors "github.com/gokatarajesh/question-bank/pkg/http/errors"
)

const maxBodyBytes = 1 << 20

// AdminService is the write side used by AdminHandler.
type AdminService interface {
	CreateQuestion(ctx context.Context, req CreateRequest) (Question, Version, error)
	PublishVersion(ctx context.Context, questionID, versionID string) (Version, Question, error)
}

// AdminHandler exposes question creation and publishing.
type AdminHandler struct {
	svc      AdminService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewAdminHandler(svc AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Create handles POST /admin/questions.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w, http.MethodPost)
		return
	}
	logger := logging.Request(r.Context(), h.logger)

	var req CreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	q, v, err := h.svc.CreateQuestion(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrValidationFailed) {
			httperrors.RespondValidationErrors(w, ValidationMessage(err), err)
			return
		}
		logger.Error().Err(err).Msg("create question failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeCreateFailed, "Failed to create question")
		return
	}

	httperrors.RespondJSON(w, http.StatusCreated, CreateResponse{Question: q, Version: v})
}

// Publish handles POST /admin/questions/{id}/publish.
func (h *AdminHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w, http.MethodPost)
		return
	}
	logger := logging.Request(r.Context(), h.logger)

	questionID := r.PathValue("id")
	if questionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "question id required", "id")
		return
	}

	var req PublishRequest
	if err := decodeBody(w, r, &req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "versionId required", "versionId")
		return
	}

	v, q, err := h.svc.PublishVersion(r.Context(), questionID, req.VersionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidationFailed):
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "versionId required", "versionId")
		case errors.Is(err, ErrNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Version not found for question")
		default:
			logger.Error().Err(err).Str("question_id", questionID).Str("version_id", req.VersionID).Msg("publish version failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodePublishFailed, "Failed to publish version")
		}
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, PublishResponse{PublishedVersion: v, Question: q})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}
