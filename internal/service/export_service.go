package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/export"
	"github.com/noah-isme/grievance-api/pkg/storage"
)

type grievanceGetter interface {
	GetByID(ctx context.Context, id string) (*models.Grievance, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders a grievance's audit trail for compliance review and
// hands out signed download links.
type ExportService struct {
	grievances grievanceGetter
	officers   officerFinder
	storage    fileStorage
	renderers  map[export.Format]export.Renderer
	signer     *storage.SignedURLSigner
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig
	now        func() time.Time
}

// NewExportService constructs an ExportService. A nil renderers map uses every built-in format.
func NewExportService(grievances grievanceGetter, officers officerFinder, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers map[export.Format]export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderers == nil {
		renderers = export.Renderers()
	}
	return &ExportService{
		grievances: grievances,
		officers:   officers,
		storage:    store,
		renderers:  renderers,
		signer:     signer,
		validator:  NewValidator(),
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Export renders the full timeline of a grievance in the requested format.
// Terminal grievances can be exported.
func (s *ExportService) Export(ctx context.Context, officerID, grievanceID string, req dto.ExportRequest) (*dto.ExportResult, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid export request")
	}
	format := export.Format(req.Format)
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Invalid("format", "unsupported export format "+req.Format)
	}

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

	payload, err := renderer.Render(TimelineDataset(g, s.now()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("%s_%s.%s", sanitizeFilename(g.TrackingID), s.now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(path.Join(exportID, fileName), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("grievance exported",
		zap.String("grievance_id", g.ID),
		zap.String("officer_id", officer.ID),
		zap.String("format", string(format)),
	)
	return &dto.ExportResult{
		ID:          exportID,
		Format:      string(format),
		FileName:    fileName,
		DownloadURL: fmt.Sprintf("%s/export/%s", prefix, token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(token string) (*os.File, string, export.Format, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", "", appErrors.Clone(appErrors.ErrForbidden, "download link has expired")
		}
		return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "export is no longer available")
	}
	name := path.Base(relPath)
	return file, name, export.Format(strings.TrimPrefix(path.Ext(name), ".")), nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Cleanup(0)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

// TimelineHeaders are the columns of a timeline export.
var TimelineHeaders = []string{"#", "Timestamp", "Action", "From", "To", "Performed By", "Visibility", "Note", "Reason"}

// TimelineDataset flattens g and its full timeline into a report.
func TimelineDataset(g *models.Grievance, generatedAt time.Time) export.Dataset {
	resolved := "-"
	if g.ResolvedAt != nil {
		resolved = g.ResolvedAt.UTC().Format(time.RFC3339)
	}
	ds := export.Dataset{
		Title: "Grievance " + g.TrackingID,
		Subtitle: []string{
			fmt.Sprintf("Scheme: %s  District: %s  Mandal: %s", g.SchemeID, g.DistrictID, g.MandalID),
			fmt.Sprintf("Status: %s  Level: %s  Priority: %s", g.Status.Label(), g.CurrentLevel, g.Priority),
			fmt.Sprintf("Submitted: %s  Resolved: %s", g.SubmittedAt.UTC().Format(time.RFC3339), resolved),
			"Generated: " + generatedAt.UTC().Format(time.RFC3339),
		},
		Headers: TimelineHeaders,
		Rows:    make([]map[string]string, 0, len(g.Timeline)),
	}
	for i, e := range g.Timeline {
		visibility := "internal"
		if e.IsPublic {
			visibility = "public"
		}
		actor := e.PerformedBy.Name
		if e.PerformedBy.Type != models.ActorCitizen {
			actor = fmt.Sprintf("%s (%s)", e.PerformedBy.Name, e.PerformedBy.Type)
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"#":            strconv.Itoa(i + 1),
			"Timestamp":    e.Timestamp.UTC().Format(time.RFC3339),
			"Action":       string(e.Action),
			"From":         string(e.FromStatus),
			"To":           string(e.ToStatus),
			"Performed By": actor,
			"Visibility":   visibility,
			"Note":         deref(e.Note),
			"Reason":       deref(e.SendBackReason),
		})
	}
	return ds
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
