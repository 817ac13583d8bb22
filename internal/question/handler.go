package question

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/auth"
	"github.com/gokatarajesh/question-bank/internal/logging"
	httperrors "github.com/gokatarajesh/question-bank/pkg/http/errors"
)

// PublishedReader serves pages of published versions.
type PublishedReader interface {
	ListPublished(ctx context.Context, req PageRequest) ([]Version, error)
}

// ListHandler serves GET /questions: credential, then entitlement, then content.
type ListHandler struct {
	gate     *Gate
	reader   PublishedReader
	pageSize int
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewListHandler(gate *Gate, reader PublishedReader, pageSize int, timeout time.Duration, logger zerolog.Logger) *ListHandler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListHandler{
		gate:     gate,
		reader:   reader,
		pageSize: pageSize,
		timeout:  timeout,
		logger:   logger.With().Str("component", "questions_handler").Logger(),
	}
}

func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w, http.MethodGet)
		return
	}

	logger := logging.Request(r.Context(), h.logger)

	credential, err := auth.ExtractBearer(r.Header.Get("Authorization"))
	if err != nil {
		respondGateError(w, logger, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	principal, err := h.gate.Admit(ctx, credential)
	if err != nil {
		respondGateError(w, logger.With().Str("user_id", string(principal)).Logger(), err)
		return
	}

	page := PageRequest{Page: ParsePage(r.URL.Query().Get("page")), PageSize: h.pageSize}
	versions, err := h.reader.ListPublished(ctx, page)
	if err != nil {
		logger.Error().Err(err).Str("user_id", string(principal)).Int("page", page.Page).Msg("question_versions lookup failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeContentLookupFailed, "Failed to fetch questions")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, ListResponse{
		Questions: versions,
		Page:      page.Page,
		PageSize:  page.PageSize,
	})
}
