package child

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/obada/child-profiles-backend/internal/models"
	"github.com/obada/child-profiles-backend/internal/store"
	"github.com/obada/child-profiles-backend/internal/uploads"
)

// Ingestion ceilings for multipart create requests. The pipeline itself
// imposes no cap; the boundary does.
const (
	MaxFiles    = 5
	MaxFileSize = 5 << 20 // 5MB
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "fail", "message": message})
}

// ChildStore defines the profile persistence the handlers need.
type ChildStore interface {
	Create(ctx context.Context, child *models.Child) (*models.Child, error)
	FindByID(ctx context.Context, id string) (*models.Child, error)
	UpdateByID(ctx context.Context, id string, set bson.M) (*models.Child, error)
	DeleteByID(ctx context.Context, id string) (*models.Child, error)
	ListAll(ctx context.Context) ([]models.Child, error)
}

// Uploader runs the image upload pipeline.
type Uploader interface {
	Process(ctx context.Context, files []uploads.File) ([]string, error)
	DeleteAll(ctx context.Context, urls []string) int
}

// Invalidator drops cached profile entries after mutations.
type Invalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// Handler holds child profile HTTP handlers.
type Handler struct {
	store    ChildStore
	uploader Uploader
	cache    Invalidator
	dev      bool
}

func NewHandler(store ChildStore, uploader Uploader, cache Invalidator, dev bool) *Handler {
	return &Handler{store: store, uploader: uploader, cache: cache, dev: dev}
}

// Create registers a new profile, uploading any attached images first.
// Images are optional: a profile may be created without them, and a
// partially failed upload batch still creates the profile with the images
// that made it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	name, age, email, password, files, err := parseCreateRequest(r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	email = models.NormalizeEmail(email)
	if err := models.ValidateDraft(name, age, email, password); err != nil {
		fail(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "validation failed: "))
		return
	}

	hashed, err := models.HashPassword(password)
	if err != nil {
		log.Printf("password hash error: %v", err)
		h.internalError(w, "failed to create profile", err)
		return
	}

	var imageURLs []string
	if len(files) > 0 {
		imageURLs, err = h.uploader.Process(r.Context(), files)
		switch {
		case errors.Is(err, uploads.ErrAllInvalid):
			fail(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			log.Printf("image upload error: %v", err)
			h.internalError(w, "error while uploading images", err)
			return
		}
	}

	child, err := h.store.Create(r.Context(), &models.Child{
		Name:     strings.TrimSpace(name),
		Age:      age,
		Email:    email,
		Password: hashed,
		Images:   imageURLs,
	})
	if errors.Is(err, store.ErrDuplicateEmail) {
		fail(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		log.Printf("child create error: %v", err)
		h.internalError(w, "failed to create profile", err)
		return
	}

	message := "account created without images"
	if len(imageURLs) > 0 {
		message = fmt.Sprintf("uploaded %d images successfully", len(imageURLs))
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"child":          child,
			"uploadedImages": len(imageURLs),
			"message":        message,
		},
	})
}

// List returns all profiles, never including password hashes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.store.ListAll(r.Context())
	if err != nil {
		log.Printf("child list error: %v", err)
		h.internalError(w, "failed to fetch children", err)
		return
	}
	if children == nil {
		children = []models.Child{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"results": len(children),
		"data":    map[string]interface{}{"children": children},
	})
}

// Get returns a single profile by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	child, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "child not found")
		return
	}
	if err != nil {
		log.Printf("child get error: %v", err)
		h.internalError(w, "failed to fetch child", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"child": child},
	})
}

// Update patches name and/or age of an existing profile.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := models.ValidateUpdate(req); err != nil {
		fail(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "validation failed: "))
		return
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		set["age"] = *req.Age
	}

	id := chi.URLParam(r, "id")
	child, err := h.store.UpdateByID(r.Context(), id, set)
	if errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "child not found")
		return
	}
	if err != nil {
		log.Printf("child update error: %v", err)
		h.internalError(w, "failed to update child", err)
		return
	}

	h.invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"child": child},
	})
}

// Delete removes a profile and best-effort deletes its stored images. Blob
// deletion failures never block the profile deletion itself.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	child, err := h.store.DeleteByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "child not found")
		return
	}
	if err != nil {
		log.Printf("child delete error: %v", err)
		h.internalError(w, "failed to delete child", err)
		return
	}

	h.invalidate(r.Context(), id)
	if failed := h.uploader.DeleteAll(r.Context(), child.Images); failed > 0 {
		log.Printf("%d of %d image deletes failed for child %s", failed, len(child.Images), id)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(ctx context.Context, id string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, id); err != nil {
		log.Printf("cache invalidate %s: %v", id, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	body := map[string]string{"status": "error", "message": message}
	if h.dev && err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

// parseCreateRequest accepts either a JSON body or a multipart form with an
// `images` field. Multipart requests are bounded here: at most MaxFiles
// parts of at most MaxFileSize bytes each. Content-type eligibility is the
// pipeline's concern, not the parser's.
func parseCreateRequest(r *http.Request) (name string, age int, email, password string, files []uploads.File, err error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		var req struct {
			Name     string `json:"name"`
			Age      int    `json:"age"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", 0, "", "", nil, errors.New("invalid request body")
		}
		return req.Name, req.Age, req.Email, req.Password, nil, nil
	}

	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		return "", 0, "", "", nil, errors.New("invalid multipart form")
	}

	name = r.FormValue("name")
	email = r.FormValue("email")
	password = r.FormValue("password")
	if v := r.FormValue("age"); v != "" {
		age, err = strconv.Atoi(v)
		if err != nil {
			return "", 0, "", "", nil, errors.New("age must be an integer")
		}
	}

	headers := r.MultipartForm.File["images"]
	if len(headers) > MaxFiles {
		return "", 0, "", "", nil, fmt.Errorf("too many files: at most %d images allowed", MaxFiles)
	}
	for _, fh := range headers {
		if fh.Size > MaxFileSize {
			return "", 0, "", "", nil, fmt.Errorf("file %q exceeds the %dMB limit", fh.Filename, MaxFileSize>>20)
		}
		f, err := readPart(fh)
		if err != nil {
			return "", 0, "", "", nil, err
		}
		files = append(files, f)
	}
	return name, age, email, password, files, nil
}

func readPart(fh *multipart.FileHeader) (uploads.File, error) {
	part, err := fh.Open()
	if err != nil {
		return uploads.File{}, fmt.Errorf("cannot read file %q", fh.Filename)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return uploads.File{}, fmt.Errorf("cannot read file %q", fh.Filename)
	}
	return uploads.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
