package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/attendance/internal/domain/model"
	"github.com/okian/attendance/pkg/logger"
)

// IdentityDependencies defines the interface for identity management.
type IdentityDependencies interface {
	RegisterIdentity(ctx context.Context, displayName string, descriptors []model.Descriptor) (model.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	ListIdentities(ctx context.Context) []model.Identity
}

// IdentitiesHandler handles identity requests.
type IdentitiesHandler struct {
	deps   IdentityDependencies
	logger logger.Logger
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(deps IdentityDependencies, log logger.Logger) *IdentitiesHandler {
	return &IdentitiesHandler{deps: deps, logger: log}
}

type registerRequest struct {
	Name        string      `json:"name"`
	Descriptors [][]float32 `json:"descriptors"`
}

// HandleIdentities handles POST and GET /identities.
func (h *IdentitiesHandler) HandleIdentities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleRegister(w, r)
	case http.MethodGet:
		list := h.deps.ListIdentities(r.Context())
		out := make([]identityResponse, 0, len(list))
		for _, id := range list {
			out = append(out, toIdentityResponse(id))
		}
		writeJSON(w, http.StatusOK, out)
	default:
		http.NotFound(w, r)
	}
}

func (h *IdentitiesHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_identity"
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(r.Context(), h.logger, w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id, err := h.deps.RegisterIdentity(r.Context(), req.Name, toDescriptors(req.Descriptors))
	if err != nil {
		writeDomainError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toIdentityResponse(id))
}

// HandleDeleteIdentity handles DELETE /identities/{id}.
func (h *IdentitiesHandler) HandleDeleteIdentity(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_identity"
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/identities/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.DeleteIdentity(r.Context(), id); err != nil {
		writeDomainError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
