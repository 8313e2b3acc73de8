// Package httpapi exposes user management over REST. Handlers translate
// between HTTP and the users use case; all error responses go through the
// shared taxonomy so clients see a uniform {"error": "..."} payload.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/graduationparty/auth-service/internal/apperror"
	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/users"
)

const (
	maxMultipartMemory = 32 << 20 // 32 MiB
	defaultPageSize    = 10
)

type Handlers struct {
	users users.UseCase
	log   logging.Logger
}

func NewHandlers(uc users.UseCase, log logging.Logger) *Handlers {
	return &Handlers{users: uc, log: log.With("module", "httpapi")}
}

// HandleSignup registers a new account. The request is multipart: a "user"
// part with the account JSON and an optional "photo" file part.
func (h *Handlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, r, h.log, apperror.NewValidation("expected multipart form data"))
		return
	}

	var user users.User
	if err := json.Unmarshal([]byte(r.FormValue("user")), &user); err != nil {
		writeError(w, r, h.log, apperror.NewValidation("malformed user payload"))
		return
	}

	photo, err := photoFromForm(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	created, err := h.users.CreateUser(r.Context(), user, photo)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.Header().Set("Location", "/users/"+created.ID)
	writeJSON(w, http.StatusCreated, created.Summary())
}

func photoFromForm(r *http.Request) (*users.Photo, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewValidation("malformed photo upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperror.NewIO("could not read photo upload", err)
	}

	return &users.Photo{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}

// HandleLogin exchanges form credentials for an access token.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, h.log, apperror.NewValidation("malformed form data"))
		return
	}

	token, err := h.users.AuthenticateUser(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// HandleListUsers returns one page of accounts. Defaults: page 0, size 10.
func (h *Handlers) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	size, err := queryInt(r, "size", defaultPageSize)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.users.FindAllUsers(r.Context(), page, size)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	summaries := make([]users.Summary, 0, len(result.Content))
	for i := range result.Content {
		summaries = append(summaries, result.Content[i].Summary())
	}

	writeJSON(w, http.StatusOK, users.NewPage(summaries, result.Page, result.Size, result.TotalElements))
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidation(name + " must be an integer")
	}
	return v, nil
}

func (h *Handlers) HandleCountUsers(w http.ResponseWriter, r *http.Request) {
	count, err := h.users.CountUsers(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handlers) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Summary())
}

func (h *Handlers) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var user users.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, r, h.log, apperror.NewValidation("malformed user payload"))
		return
	}

	updated, err := h.users.UpdateUser(r.Context(), chi.URLParam(r, "id"), user)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Summary())
}

func (h *Handlers) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the error onto its HTTP status. Errors outside the taxonomy
// are logged in full and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		log.Error(r.Context(), "unclassified error", "method", r.Method, "path", r.URL.Path, "error", err)
		appErr = apperror.NewInternal("internal server error", err)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
