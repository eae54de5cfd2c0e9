package handler

import (
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wikitree/internal/domain"
	"wikitree/internal/domain/pagequery"
	"wikitree/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError
	var validationErrs validation.Errors

	switch {
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{}
		if conflictErr.ResourceID != "" {
			extras["resource_id"] = conflictErr.ResourceID
		}
		if conflictErr.ResourceType != "" {
			extras["resource_type"] = conflictErr.ResourceType
		}
		httputil.RespondProblem(w, http.StatusConflict, conflictErr.Error(), extras)
	case errors.Is(err, domain.ErrValidation), errors.As(err, &validationErrs):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Message: name + " must be an integer"}
	}
	return n, nil
}

// queryBool treats "true" and "1" as true.
func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// listOptions reads offset, limit, sort and desc. An unknown sort key is a
// validation error.
func listOptions(r *http.Request) (pagequery.ListOptions, error) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return pagequery.ListOptions{}, err
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return pagequery.ListOptions{}, err
	}
	opts := pagequery.ListOptions{
		Offset: offset,
		Limit:  limit,
		Sort:   pagequery.SortKey(r.URL.Query().Get("sort")),
		Desc:   queryBool(r, "desc"),
	}
	if opts.Sort != "" && !opts.Sort.Valid() {
		return pagequery.ListOptions{}, &domain.ValidationError{Message: "unknown sort key " + string(opts.Sort)}
	}
	return opts, nil
}

// requireQuery reads a mandatory query parameter.
func requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		httputil.RespondError(w, http.StatusBadRequest, name+" query parameter is required")
		return "", false
	}
	return v, true
}

// decode parses the JSON body, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(w, r, dest); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
