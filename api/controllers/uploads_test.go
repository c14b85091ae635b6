package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/internal/uploads"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

type stubUploadService struct {
	fn func(ctx context.Context, userID uuid.UUID, input uploads.PresignInput) (*uploads.PresignOutput, error)
}

func (s *stubUploadService) PresignUpload(ctx context.Context, userID uuid.UUID, input uploads.PresignInput) (*uploads.PresignOutput, error) {
	return s.fn(ctx, userID, input)
}

func TestPresignUploadPassesInput(t *testing.T) {
	userID := uuid.New()
	svc := &stubUploadService{
		fn: func(_ context.Context, got uuid.UUID, input uploads.PresignInput) (*uploads.PresignOutput, error) {
			assert.Equal(t, userID, got)
			assert.Equal(t, enums.UploadKindImage, input.Kind)
			assert.Equal(t, "logo.png", input.FileName)
			assert.Equal(t, int64(2048), input.SizeBytes)
			return &uploads.PresignOutput{
				UploadURL: "https://storage.example.com/put",
				Reference: "https://cdn.example.com/logo.png",
				ExpiresAt: time.Now().Add(time.Minute),
			}, nil
		},
	}

	body := `{"kind":"image","fileName":"  logo.png ","contentType":"image/png","sizeBytes":2048}`
	req := newRequest(http.MethodPost, "/api/v1/uploads/presign", body, userID, enums.UserRoleFreelancer, nil)
	rec := httptest.NewRecorder()
	PresignUpload(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestPresignUploadRejectsUnknownKind(t *testing.T) {
	body := `{"kind":"video","fileName":"a.mp4","contentType":"video/mp4","sizeBytes":1}`
	req := newRequest(http.MethodPost, "/api/v1/uploads/presign", body, uuid.New(), enums.UserRoleClient, nil)
	rec := httptest.NewRecorder()
	PresignUpload(&stubUploadService{}, testLogger())(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
