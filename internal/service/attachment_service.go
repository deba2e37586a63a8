package service

import (
	"context"
	"database/sql"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type objectPresigner interface {
	PresignUpload(ctx context.Context, objectName string) (string, time.Time, error)
	PresignDownload(ctx context.Context, objectName string) (string, error)
}

var attachmentExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"audio/webm":      ".webm",
	"audio/mpeg":      ".mp3",
}

// AttachmentLink is a time-limited download link for one stored attachment.
type AttachmentLink struct {
	ObjectKey string `json:"object_key"`
	URL       string `json:"url"`
}

// AttachmentService hands out presigned object storage URLs. Grievances
// only ever store the opaque object keys.
type AttachmentService struct {
	store      objectPresigner
	grievances grievanceGetter
	officers   officerFinder
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

func NewAttachmentService(store objectPresigner, grievances grievanceGetter, officers officerFinder, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{
		store:      store,
		grievances: grievances,
		officers:   officers,
		validator:  NewValidator(),
		logger:     logger,
		now:        time.Now,
	}
}

// RequestUpload reserves an object key and returns a PUT URL for it.
func (s *AttachmentService) RequestUpload(ctx context.Context, req dto.AttachmentUploadRequest) (*dto.AttachmentUploadResponse, error) {
	req.FileName = strings.TrimSpace(req.FileName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid upload request")
	}
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attachments are not enabled")
	}
	key := path.Join("attachments", s.now().UTC().Format("2006/01"), uuid.NewString()+attachmentExtensions[req.ContentType])
	url, expiresAt, err := s.store.PresignUpload(ctx, key)
	if err != nil {
		s.logger.Error("presign upload failed", zap.String("object_key", key), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return &dto.AttachmentUploadResponse{
		UploadURL: url,
		ObjectKey: key,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Links returns download URLs for a grievance's attachments to an officer in scope.
func (s *AttachmentService) Links(ctx context.Context, officerID, grievanceID string) ([]AttachmentLink, error) {
	officer, err := activeOfficer(ctx, s.officers, officerID)
	if err != nil {
		return nil, err
	}
	g, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grievance")
	}
	if !officer.Scope().Matches(g) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grievance is outside your jurisdiction")
	}
	links := make([]AttachmentLink, 0, len(g.Attachments))
	if s.store == nil {
		return links, nil
	}
	for _, key := range g.Attachments {
		url, err := s.store.PresignDownload(ctx, key)
		if err != nil {
			s.logger.Warn("presign download failed", zap.String("object_key", key), zap.Error(err))
			continue
		}
		links = append(links, AttachmentLink{ObjectKey: key, URL: url})
	}
	return links, nil
}
