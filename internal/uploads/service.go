package uploads

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
)

const (
	defaultMaxUploadBytes = 50 * 1024 * 1024
	presignPerMinute      = 30
	presignWindow         = time.Minute
)

type objectStore interface {
	PresignedPutURL(ctx context.Context, key string, expires time.Duration) (string, error)
	ObjectURL(key string) string
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service hands out presigned upload URLs. The engagement core only ever
// stores the returned reference URL.
type Service interface {
	PresignUpload(ctx context.Context, userID uuid.UUID, input PresignInput) (*PresignOutput, error)
}

// PresignInput describes the object the caller is about to upload.
type PresignInput struct {
	Kind        enums.UploadKind
	FileName    string
	ContentType string
	SizeBytes   int64
}

// PresignOutput carries the PUT target and the durable reference.
type PresignOutput struct {
	UploadURL   string    `json:"upload_url"`
	Reference   string    `json:"reference"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ServiceParams struct {
	Store          objectStore
	Limiter        rateLimiter
	UploadTTL      time.Duration
	MaxUploadBytes int64
}

type service struct {
	store     objectStore
	limiter   rateLimiter
	uploadTTL time.Duration
	maxBytes  int64
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.UploadTTL <= 0 {
		return nil, fmt.Errorf("upload ttl must be positive")
	}
	maxBytes := params.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &service{
		store:     params.Store,
		limiter:   params.Limiter,
		uploadTTL: params.UploadTTL,
		maxBytes:  maxBytes,
		now:       time.Now,
	}, nil
}

func (s *service) PresignUpload(ctx context.Context, userID uuid.UUID, input PresignInput) (*PresignOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kind must be image or file")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d", s.maxBytes))
	}

	detected, err := lookupContentType(input.ContentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content_type")
	}
	if input.Kind == enums.UploadKindImage && !strings.HasPrefix(detected.String(), "image/") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image uploads require an image content_type")
	}

	fileName := sanitizeFileName(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	if path.Ext(fileName) == "" {
		fileName += detected.Extension()
	}

	if s.limiter != nil {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "presign:"+userID.String(), presignPerMinute, presignWindow)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check upload rate limit")
		}
		if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many upload requests")
		}
	}

	key := objectKey(input.Kind, userID, uuid.New(), fileName)
	uploadURL, err := s.store.PresignedPutURL(ctx, key, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign upload url")
	}

	return &PresignOutput{
		UploadURL:   uploadURL,
		Reference:   s.store.ObjectURL(key),
		ObjectKey:   key,
		ContentType: detected.String(),
		ExpiresAt:   s.now().UTC().Add(s.uploadTTL),
	}, nil
}

// lookupContentType parses the declared type and resolves it against the
// mimetype tree so unknown or malformed types are refused.
func lookupContentType(value string) (*mimetype.MIME, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return nil, fmt.Errorf("content type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return nil, fmt.Errorf("content type invalid: %w", err)
	}
	detected := mimetype.Lookup(strings.ToLower(mediaType))
	if detected == nil {
		return nil, fmt.Errorf("content type %q not supported", mediaType)
	}
	return detected, nil
}

func objectKey(kind enums.UploadKind, userID, id uuid.UUID, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s/%s/%s", kind, userID, id, fileName)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
