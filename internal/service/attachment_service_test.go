package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type fakePresigner struct {
	failKey string
}

func (f fakePresigner) PresignUpload(_ context.Context, key string) (string, time.Time, error) {
	return "https://minio.local/upload/" + key, fixedNow.Add(15 * time.Minute), nil
}

func (f fakePresigner) PresignDownload(_ context.Context, key string) (string, error) {
	if key == f.failKey {
		return "", errors.New("object missing")
	}
	return "https://minio.local/get/" + key, nil
}

func TestAttachmentServiceRequestUpload(t *testing.T) {
	e := newEngine(t)
	svc := NewAttachmentService(fakePresigner{}, e.repo, e.officers, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	resp, err := svc.RequestUpload(context.Background(), dto.AttachmentUploadRequest{FileName: "certificate.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.ObjectKey, "attachments/2024/03/"))
	assert.True(t, strings.HasSuffix(resp.ObjectKey, ".pdf"))
	assert.Equal(t, "https://minio.local/upload/"+resp.ObjectKey, resp.UploadURL)

	_, err = svc.RequestUpload(context.Background(), dto.AttachmentUploadRequest{FileName: "run.exe", ContentType: "application/x-msdownload"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	disabled := NewAttachmentService(nil, e.repo, e.officers, zap.NewNop())
	_, err = disabled.RequestUpload(context.Background(), dto.AttachmentUploadRequest{FileName: "a.png", ContentType: "image/png"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAttachmentServiceLinks(t *testing.T) {
	e := newEngine(t)
	req := validIntake()
	req.Attachments = []string{"attachments/2024/03/a.pdf", "attachments/2024/03/gone.png"}
	resp, err := e.grievances.Create(context.Background(), req)
	require.NoError(t, err)

	svc := NewAttachmentService(fakePresigner{failKey: "attachments/2024/03/gone.png"}, e.repo, e.officers, zap.NewNop())

	links, err := svc.Links(context.Background(), mandalOfficer.ID, resp.GrievanceID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "attachments/2024/03/a.pdf", links[0].ObjectKey)

	_, err = svc.Links(context.Background(), otherMandalOfficer.ID, resp.GrievanceID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
