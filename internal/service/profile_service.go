package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/observability"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
)

var (
	// ErrAvatarRequired indicates the upload carried no file.
	ErrAvatarRequired = errors.New("profile picture is required")
	// ErrAvatarTooLarge indicates the payload exceeded the configured limit.
	ErrAvatarTooLarge = errors.New("profile picture exceeds maximum allowed size")
	// ErrAvatarTypeNotAllowed indicates the sniffed type is not a supported image.
	ErrAvatarTypeNotAllowed = errors.New("profile picture must be a jpeg, png, webp or gif image")
	// ErrAvatarStorageUnavailable indicates no object storage is configured.
	ErrAvatarStorageUnavailable = errors.New("profile picture storage is not configured")
)

var allowedAvatarTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// FileStorage abstracts upload destinations. key identifies the object.
type FileStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader) (string, error)
}

// ProfileService manages account settings.
type ProfileService interface {
	Get(ctx context.Context, userID string) (dto.ProfileResponse, error)
	Update(ctx context.Context, userID string, req dto.ProfileUpdateRequest) (dto.ProfileResponse, error)
	UploadPhoto(ctx context.Context, userID string, file *multipart.FileHeader) (dto.ProfileResponse, error)
}

type profileService struct {
	users     repository.UserRepository
	storage   FileStorage
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewProfileService constructs the profile service. storage may be nil, in which
// case photo uploads fail with ErrAvatarStorageUnavailable.
func NewProfileService(users repository.UserRepository, storage FileStorage, maxSizeMB int, validate *validator.Validate, logger zerolog.Logger) ProfileService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &profileService{
		users:     users,
		storage:   storage,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "profile_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mindful-youth-api/internal/service/profile"),
	}
}

func (s *profileService) Get(ctx context.Context, userID string) (dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(user), nil
}

func (s *profileService) Update(ctx context.Context, userID string, req dto.ProfileUpdateRequest) (dto.ProfileResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ProfileResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	if req.DisplayName != nil {
		user.DisplayName = sanitizeText(s.sanitizer, *req.DisplayName)
	}
	if req.Country != nil {
		user.Country = sanitizeText(s.sanitizer, *req.Country)
	}
	if req.Email != nil && !strings.EqualFold(strings.TrimSpace(*req.Email), user.Email) {
		existing, err := s.users.GetByEmail(ctx, *req.Email)
		switch {
		case err == nil && existing.ID != user.ID:
			return dto.ProfileResponse{}, ErrEmailTaken
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return dto.ProfileResponse{}, err
		}
		user.Email = *req.Email
	}

	if err := s.users.Update(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.ProfileResponse{}, ErrEmailTaken
		}
		return dto.ProfileResponse{}, fmt.Errorf("update profile: %w", err)
	}

	updated, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(updated), nil
}

// UploadPhoto stores the image under the user's id, replacing any previous picture.
func (s *profileService) UploadPhoto(ctx context.Context, userID string, file *multipart.FileHeader) (dto.ProfileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "profile.upload_photo")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage unavailable")
		return dto.ProfileResponse{}, ErrAvatarStorageUnavailable
	}
	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.ProfileResponse{}, ErrAvatarRequired
	}
	if file.Size > s.maxSize {
		observability.AvatarUploads().WithLabelValues("too_large").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.ProfileResponse{}, ErrAvatarTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.ProfileResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.ProfileResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.AvatarUploads().WithLabelValues("too_large").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.ProfileResponse{}, ErrAvatarTooLarge
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	span.SetAttributes(attribute.String("upload.detected_mime", detected))
	if _, ok := allowedAvatarTypes[detected]; !ok {
		observability.AvatarUploads().WithLabelValues("type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return dto.ProfileResponse{}, ErrAvatarTypeNotAllowed
	}

	url, err := s.storage.Upload(ctx, userID, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.AvatarUploads().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.ProfileResponse{}, fmt.Errorf("upload profile picture: %w", err)
	}

	if err := s.users.UpdatePhotoURL(ctx, userID, url); err != nil {
		span.RecordError(err)
		return dto.ProfileResponse{}, err
	}

	observability.AvatarUploads().WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "stored")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(user), nil
}
