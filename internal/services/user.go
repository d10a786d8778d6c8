package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

var ErrUserNotFound = errors.New("user not found")

// ProfileUpdate carries the PATCH-able profile fields; nil means unchanged.
type ProfileUpdate struct {
	FullName    *string `json:"full_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      baseLog.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := us.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*types.User, error) {
	updates := map[string]interface{}{}
	if update.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*update.FullName)
	}
	if update.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*update.Email))
	}
	if update.DateOfBirth != nil {
		if dob := strings.TrimSpace(*update.DateOfBirth); dob != "" {
			parsed, err := time.Parse("2006-01-02", dob)
			if err != nil {
				return nil, errors.New("date_of_birth must be YYYY-MM-DD")
			}
			updates["date_of_birth"] = parsed
		} else {
			updates["date_of_birth"] = nil
		}
	}
	if len(updates) > 0 {
		if err := us.userRepo.UpdateFields(ctx, nil, userID, updates); err != nil {
			return nil, err
		}
	}
	return us.GetProfile(ctx, userID)
}
