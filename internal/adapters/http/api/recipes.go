package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/okian/recipebox/internal/adapters/repository"
	"github.com/okian/recipebox/internal/domain/recipe"
	"github.com/okian/recipebox/pkg/logger"
)

// createRequest mirrors the OpenAPI schema for POST /recipes.
type createRequest struct {
	Name        string   `json:"name" validate:"notblank"`
	Ingredients []string `json:"ingredients" validate:"omitempty,dive,notblank"`
}

// updateRequest mirrors the OpenAPI schema for PUT /recipes/{id}.
// Ingredients must be present; an empty list is accepted.
type updateRequest struct {
	ID          *string  `json:"id"`
	Name        string   `json:"name" validate:"notblank"`
	Ingredients []string `json:"ingredients" validate:"required,dive,notblank"`
}

// RecipesHandler serves the /recipes resource.
type RecipesHandler struct {
	store        repository.Store
	validate     *validator.Validate
	logger       logger.Logger
	maxBodyBytes int64
}

// NewRecipesHandler creates a handler backed by store.
func NewRecipesHandler(store repository.Store, l logger.Logger, maxBodyBytes int64) *RecipesHandler {
	if l == nil {
		l = logger.Nop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &RecipesHandler{
		store:        store,
		validate:     newValidator(),
		logger:       l,
		maxBodyBytes: maxBodyBytes,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// HandleList handles GET /recipes requests.
func (h *RecipesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List(r.Context()))
}

// HandleGet handles GET /recipes/{id} requests.
func (h *RecipesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recipe"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleCreate handles POST /recipes requests.
func (h *RecipesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_recipe"
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.store.Create(r.Context(), recipe.Input{Name: req.Name, Ingredients: req.Ingredients})
	if err != nil {
		h.writeStoreError(w, r, op, err)
		return
	}

	w.Header().Set("Location", "/recipes/"+url.PathEscape(rec.ID))
	writeJSON(w, http.StatusCreated, rec)
}

// HandleUpdate handles PUT /recipes/{id} requests. The body replaces the
// record's name and ingredients; the id never changes.
func (h *RecipesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_recipe"
	id, err := pathID(r)
	if err != nil || strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: missing recipe id", ErrBadRequest))
		return
	}

	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID != nil && *req.ID != id {
		writeError(w, http.StatusBadRequest, codeIDMismatch,
			fmt.Errorf("%w: body id %q does not match path id %q", ErrIDMismatch, *req.ID, id))
		return
	}

	ok, err := h.store.Update(r.Context(), id, recipe.Patch{Name: req.Name, Ingredients: req.Ingredients})
	if err != nil {
		h.writeStoreError(w, r, op, err)
		return
	}
	if !ok {
		h.writeStoreError(w, r, op, fmt.Errorf("%w: %q", recipe.ErrNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /recipes/{id} requests.
func (h *RecipesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_recipe"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if !h.store.Remove(r.Context(), id) {
		h.writeStoreError(w, r, op, fmt.Errorf("%w: %q", recipe.ErrNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a single JSON object from the capped body into dst and
// validates it. On failure the response has been written and false is returned.
func (h *RecipesHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, codeBodyTooLarge, ErrBodyTooLarge)
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: request body is empty", ErrBadRequest))
		default:
			writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: malformed JSON: %v", ErrBadRequest, err))
		}
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: unexpected data after JSON object", ErrBadRequest))
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRecipe, validationError(err))
		return false
	}
	return true
}

// writeStoreError maps store and domain errors to responses. Anything
// unrecognised is logged and reported as a bare 500.
func (h *RecipesHandler) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, recipe.ErrDuplicateID):
		writeError(w, http.StatusBadRequest, codeDuplicateID, err)
	case errors.Is(err, recipe.ErrValidation):
		writeError(w, http.StatusBadRequest, codeInvalidRecipe, err)
	case errors.Is(err, recipe.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err)
	default:
		h.logger.Error(r.Context(), "recipe operation failed",
			logger.Error(Wrap(op, err)),
			logger.String("request_id", RequestIDFromContext(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, codeInternal, nil)
	}
}

// validationError flattens validator output into a recipe.ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", recipe.ErrValidation, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "notblank":
			parts = append(parts, fe.Field()+" must not be blank")
		default:
			parts = append(parts, fe.Field()+" failed "+fe.Tag())
		}
	}
	return fmt.Errorf("%w: %s", recipe.ErrValidation, strings.Join(parts, "; "))
}

// pathID returns the decoded {id} segment.
func pathID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id, nil
	}
	// chi matched against the escaped path.
	return url.PathUnescape(id)
}
