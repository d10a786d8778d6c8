package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/ctxutil"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrOTPInvalid         = errors.New("incorrect OTP")
	ErrRefreshInvalid     = errors.New("invalid or expired refresh token")
)

const otpTTL = 5 * time.Minute

type JWTClaims struct {
	jwt.RegisteredClaims
	PhoneNumber string `json:"phone_number,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService implements phone+OTP login. A successful verification creates
// the user on first login and always issues a fresh JWT access token plus an
// opaque refresh token (stored hashed).
type AuthService interface {
	RequestOTP(ctx context.Context, phoneNumber string) error
	VerifyOTP(ctx context.Context, phoneNumber, code string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	otpStore      OTPStore
	sms           SMSProvider
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	otpStore OTPStore,
	sms SMSProvider,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		otpStore:      otpStore,
		sms:           sms,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// NormalizePhoneNumber strips separators and applies the +91 default country
// code for bare 10-digit Indian numbers.
func NormalizePhoneNumber(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	digits := strings.TrimPrefix(cleaned, "+")
	if digits == "" {
		return "", ErrInvalidPhoneNumber
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhoneNumber
		}
	}
	if len(digits) == 10 {
		return "+91" + digits, nil
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhoneNumber
	}
	return "+" + digits, nil
}

func (as *authService) RequestOTP(ctx context.Context, phoneNumber string) error {
	phone, err := NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return err
	}
	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash OTP: %w", err)
	}
	if err := as.otpStore.Save(ctx, phone, string(hash), otpTTL); err != nil {
		return err
	}
	if err := as.sms.SendOTP(ctx, phone, code); err != nil {
		return fmt.Errorf("failed to send OTP: %w", err)
	}
	return nil
}

func (as *authService) VerifyOTP(ctx context.Context, phoneNumber, code string) (*TokenPair, error) {
	phone, err := NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return nil, err
	}
	hash, err := as.otpStore.GetHash(ctx, phone)
	if err != nil {
		return nil, err
	}
	if err := as.otpStore.IncrementAttempts(ctx, phone); err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return nil, ErrOTPInvalid
	}
	if err := as.otpStore.Consume(ctx, phone); err != nil {
		as.log.Warn("Failed to consume OTP after successful verify", "error", err.Error())
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, uErr := as.userRepo.GetByPhoneNumber(ctx, tx, phone)
		if uErr != nil {
			return fmt.Errorf("failed to load user: %w", uErr)
		}
		if user == nil {
			user, uErr = as.userRepo.Create(ctx, tx, &types.User{
				PhoneNumber: phone,
				IsActive:    true,
			})
			if uErr != nil {
				return fmt.Errorf("failed to create user: %w", uErr)
			}
		}
		pair, uErr = as.issueTokens(ctx, tx, user)
		return uErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrRefreshInvalid
	}
	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, tErr := as.userTokenRepo.GetByTokenHash(ctx, tx, hashToken(refreshToken))
		if tErr != nil {
			return fmt.Errorf("failed to load refresh token: %w", tErr)
		}
		if stored == nil || stored.Revoked || stored.ExpiresAt.Before(time.Now()) {
			return ErrRefreshInvalid
		}
		user, uErr := as.userRepo.GetByID(ctx, tx, stored.UserID)
		if uErr != nil {
			return fmt.Errorf("failed to load user for refresh: %w", uErr)
		}
		if user == nil {
			return ErrRefreshInvalid
		}
		if rErr := as.userTokenRepo.RevokeByTokenHash(ctx, tx, stored.TokenHash); rErr != nil {
			return fmt.Errorf("failed to rotate refresh token: %w", rErr)
		}
		pair, uErr = as.issueTokens(ctx, tx, user)
		return uErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return as.userTokenRepo.RevokeByTokenHash(ctx, nil, hashToken(refreshToken))
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
	access, err := as.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh := uuid.NewString()
	_, err = as.userTokenRepo.Create(ctx, tx, &types.UserToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: time.Now().Add(as.refreshTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		PhoneNumber: user.PhoneNumber,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired JWT token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		PhoneNumber: claims.PhoneNumber,
	}), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
