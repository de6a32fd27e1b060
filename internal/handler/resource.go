package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/translearn/translearn/internal/auth"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/service"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 10 << 20 // 10 MB

// ResourceHandler serves learning resource CRUD and file uploads.
type ResourceHandler struct {
	resources service.ResourceService
	logger    *slog.Logger
}

// NewResourceHandler creates the resource handler.
func NewResourceHandler(resources service.ResourceService, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, logger: logger}
}

type resourceResponse struct {
	ID            string    `json:"id"`
	TeacherID     string    `json:"teacher_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Grade         string    `json:"grade,omitempty"`
	Country       string    `json:"country,omitempty"`
	Language      string    `json:"language"`
	Tags          []string  `json:"tags,omitempty"`
	FileURL       string    `json:"file_url,omitempty"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	AverageRating float64   `json:"average_rating"`
	RatingCount   int       `json:"rating_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func newResourceResponse(res *domain.Resource) resourceResponse {
	return resourceResponse{
		ID:            res.ID.String(),
		TeacherID:     res.TeacherID.String(),
		Title:         res.Title,
		Description:   res.Description,
		Subject:       res.Subject,
		Grade:         res.Grade,
		Country:       res.Country,
		Language:      res.Language,
		Tags:          res.Tags,
		FileURL:       res.FileURL,
		ThumbnailURL:  res.ThumbnailURL,
		AverageRating: res.AverageRating,
		RatingCount:   res.RatingCount,
		CreatedAt:     res.CreatedAt,
	}
}

func newResourceListResponse(resources []*domain.Resource) []resourceResponse {
	out := make([]resourceResponse, 0, len(resources))
	for _, res := range resources {
		out = append(out, newResourceResponse(res))
	}
	return out
}

// Create handles POST /api/resources. Consumes one quota unit; a 402
// response means the caller's monthly upload limit is exhausted.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var input struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Subject     string   `json:"subject"`
		Grade       string   `json:"grade"`
		Country     string   `json:"country"`
		Language    string   `json:"language"`
		Tags        []string `json:"tags"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resource, err := h.resources.Create(r.Context(), domain.ResourceCreateParams{
		TeacherID:   user.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Subject:     strings.TrimSpace(input.Subject),
		Grade:       strings.TrimSpace(input.Grade),
		Country:     strings.TrimSpace(input.Country),
		Language:    strings.TrimSpace(input.Language),
		Tags:        input.Tags,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, envelope{"resource": newResourceResponse(resource)})
}

// Upload handles POST /api/resources/{id}/file, a multipart form with a
// single "file" field.
func (h *ResourceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid resource id"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "expected a multipart form upload"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "missing \"file\" field"))
		return
	}
	defer file.Close()

	resource, err := h.resources.AttachFile(r.Context(), id, user.ID, header.Filename, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{"resource": newResourceResponse(resource)})
}

// Get handles GET /api/resources/{id}.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid resource id"))
		return
	}

	resource, err := h.resources.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{"resource": newResourceResponse(resource)})
}

// List handles GET /api/resources with filter query parameters.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ResourceFilter{
		Subject:  q.Get("subject"),
		Grade:    q.Get("grade"),
		Country:  q.Get("country"),
		Language: q.Get("language"),
		Query:    q.Get("q"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	resources, err := h.resources.List(r.Context(), filter)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{
		"resources": newResourceListResponse(resources),
		"count":     len(resources),
	})
}

// Delete handles DELETE /api/resources/{id}.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid resource id"))
		return
	}

	if err := h.resources.Delete(r.Context(), id, user.ID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{"message": "resource deleted"})
}
