// Package service contains the business logic layer.
//
// This file implements resource management: quota-gated creation, file
// attachment through the storage layer, search, and deletion.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/storage"
)

const (
	// MaxResourceFileSize caps uploaded files at 50 MB.
	MaxResourceFileSize = 50 << 20

	// Thumbnail bounds for image resources.
	thumbnailMaxWidth  = 400
	thumbnailMaxHeight = 400
)

// ResourceService defines operations on educational resources.
type ResourceService interface {
	// Create persists a new resource for a teacher. The insert and the
	// quota consumption run in one transaction: when the monthly quota is
	// exhausted the whole transaction rolls back and domain.EPAYMENT is
	// returned, so a denied upload never leaves a stored resource behind.
	Create(ctx context.Context, params domain.ResourceCreateParams) (*domain.Resource, error)

	// AttachFile stores the uploaded file for a resource the teacher owns
	// and, for images, generates and stores a thumbnail.
	AttachFile(ctx context.Context, resourceID, teacherID uuid.UUID, filename string, data io.Reader) (*domain.Resource, error)

	// Get returns a resource with its rating aggregates.
	Get(ctx context.Context, id uuid.UUID) (*domain.Resource, error)

	// List searches resources with the given filter.
	List(ctx context.Context, filter domain.ResourceFilter) ([]*domain.Resource, error)

	// Delete removes a resource owned by the given teacher. Consumed quota
	// is not refunded; the ledger counts upload attempts, not live content.
	Delete(ctx context.Context, id, teacherID uuid.UUID) error
}

type resourceService struct {
	db         *sql.DB
	queries    *repository.Queries
	quota      QuotaService
	store      storage.Storage
	thumbnails ThumbnailProcessor
	logger     *slog.Logger
}

// NewResourceService creates a new ResourceService.
func NewResourceService(db *sql.DB, queries *repository.Queries, quota QuotaService, store storage.Storage, thumbnails ThumbnailProcessor, logger *slog.Logger) ResourceService {
	return &resourceService{
		db:         db,
		queries:    queries,
		quota:      quota,
		store:      store,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

func (s *resourceService) Create(ctx context.Context, params domain.ResourceCreateParams) (*domain.Resource, error) {
	const op = "resource.create"

	if err := domain.ValidateResourceParams(&params); err != nil {
		return nil, err
	}

	teacher, err := s.queries.GetUserByID(ctx, params.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", params.TeacherID.String())
		}
		return nil, domain.Internal(err, op, "failed to load teacher")
	}
	if !teacher.IsTeacher() {
		return nil, domain.Forbidden(op, "only teachers can upload resources")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	resource, err := qtx.CreateResource(ctx, params)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to insert resource")
	}

	// Persist-then-consume inside one transaction: if the quota is spent the
	// rollback removes the resource row, if the commit fails no unit was
	// consumed. Both outcomes keep resource count and ledger in step.
	consumed, err := s.quota.ConsumeWithin(ctx, qtx, params.TeacherID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		decision, checkErr := s.quota.Check(ctx, params.TeacherID)
		if checkErr != nil {
			return nil, domain.QuotaExceeded(op, 0, 0)
		}
		return nil, domain.QuotaExceeded(op, decision.Used, decision.Limit)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "failed to commit resource")
	}

	metrics.ResourcesUploaded.Inc()
	s.logActivity(ctx, params.TeacherID, domain.ActionResourceUploaded, map[string]string{
		"resource_id": resource.ID.String(),
		"title":       resource.Title,
	})
	s.logger.Info("resource created", "resource_id", resource.ID, "teacher_id", params.TeacherID)

	return resource, nil
}

func (s *resourceService) AttachFile(ctx context.Context, resourceID, teacherID uuid.UUID, filename string, data io.Reader) (*domain.Resource, error) {
	const op = "resource.attach_file"

	resource, err := s.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if resource.TeacherID != teacherID {
		return nil, domain.Forbidden(op, "you do not own this resource")
	}

	contentType := storage.ContentTypeForFilename(filename)
	if !storage.AllowedResourceContentType(contentType) {
		return nil, domain.Invalid(op, fmt.Sprintf("unsupported file type %q", contentType))
	}

	// Buffer the upload so we can both store it and, for images, decode a
	// thumbnail from the same bytes.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(data, MaxResourceFileSize+1)); err != nil {
		return nil, domain.Internal(err, op, "failed to read upload")
	}
	if buf.Len() > MaxResourceFileSize {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "file exceeds the %d MB limit", MaxResourceFileSize>>20)
	}

	fileKey := storage.ResourceFileKey(resourceID, filename)
	err = s.store.Put(ctx, fileKey, bytes.NewReader(buf.Bytes()), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     MaxResourceFileSize,
		Public:      true,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store file")
	}

	fileURL, err := s.store.URL(ctx, fileKey, 0)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve file URL")
	}

	thumbnailURL := ""
	if strings.HasPrefix(contentType, "image/") {
		thumbnailURL, err = s.storeThumbnail(ctx, resourceID, buf.Bytes())
		if err != nil {
			// A bad thumbnail never blocks the upload itself.
			s.logger.Warn("thumbnail generation failed", "resource_id", resourceID, "error", err)
			thumbnailURL = ""
		}
	}

	if err := s.queries.UpdateResourceFile(ctx, resourceID, fileURL, thumbnailURL); err != nil {
		return nil, domain.Internal(err, op, "failed to update resource file")
	}

	resource.FileURL = fileURL
	resource.ThumbnailURL = thumbnailURL
	return resource, nil
}

func (s *resourceService) storeThumbnail(ctx context.Context, resourceID uuid.UUID, data []byte) (string, error) {
	thumb, _, _, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(data), thumbnailMaxWidth, thumbnailMaxHeight)
	if err != nil {
		return "", err
	}

	key := storage.ResourceThumbnailKey(resourceID)
	err = s.store.Put(ctx, key, bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
		Public:      true,
	})
	if err != nil {
		return "", err
	}
	return s.store.URL(ctx, key, 0)
}

func (s *resourceService) Get(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	const op = "resource.get"

	resource, err := s.queries.GetResource(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "resource", id.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch resource")
	}
	return resource, nil
}

func (s *resourceService) List(ctx context.Context, filter domain.ResourceFilter) ([]*domain.Resource, error) {
	const op = "resource.list"

	resources, err := s.queries.ListResources(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to search resources")
	}
	return resources, nil
}

func (s *resourceService) Delete(ctx context.Context, id, teacherID uuid.UUID) error {
	const op = "resource.delete"

	deleted, err := s.queries.DeleteResource(ctx, id, teacherID)
	if err != nil {
		return domain.Internal(err, op, "failed to delete resource")
	}
	if deleted == 0 {
		return domain.NotFound(op, "resource", id.String())
	}

	// Best-effort thumbnail cleanup. Orphaned objects are harmless, so a
	// storage failure never rolls back the delete.
	if err := s.store.Delete(ctx, storage.ResourceThumbnailKey(id)); err != nil && !storage.IsNotFound(err) {
		s.logger.Warn("failed to delete thumbnail", "resource_id", id, "error", err)
	}

	s.logger.Info("resource deleted", "resource_id", id, "teacher_id", teacherID)
	return nil
}

// logActivity appends an audit entry, logging but not propagating failures:
// a broken audit trail should not fail the user-facing operation.
func (s *resourceService) logActivity(ctx context.Context, userID uuid.UUID, action string, details map[string]string) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = nil
	}
	if err := s.queries.InsertActivityLog(ctx, userID, action, payload); err != nil {
		s.logger.Warn("failed to record activity", "action", action, "error", err)
	}
}
