package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/ctxutil"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

func newAuthServiceForTest(t *testing.T) (AuthService, *fakeUserRepo, *fakeUserTokenRepo, *fakeOTPStore, *fakeSMS) {
	t.Helper()
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeUserTokenRepo()
	otpStore := newFakeOTPStore()
	sms := &fakeSMS{}
	svc := NewAuthService(testDB(t), logger.NewNop(), userRepo, tokenRepo, otpStore, sms, "test-secret", time.Hour, 24*time.Hour)
	return svc, userRepo, tokenRepo, otpStore, sms
}

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare 10 digits get +91", input: "9876543210", want: "+919876543210"},
		{name: "separators stripped", input: "98765-43210", want: "+919876543210"},
		{name: "already prefixed", input: "+91 98765 43210", want: "+919876543210"},
		{name: "other country code", input: "+14155551234", want: "+14155551234"},
		{name: "too short", input: "12345", wantErr: true},
		{name: "letters", input: "98765abcde", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhoneNumber(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPhoneNumber) {
					t.Fatalf("want ErrInvalidPhoneNumber, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhoneNumber: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestRequestOTPStoresHashAndSends(t *testing.T) {
	svc, _, _, otpStore, sms := newAuthServiceForTest(t)

	if err := svc.RequestOTP(context.Background(), "9876543210"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if len(sms.sent) != 1 || sms.sent[0] != "+919876543210" {
		t.Fatalf("SMS should go to the normalized number, got %v", sms.sent)
	}
	code := sms.codes[0]
	if len(code) != 6 {
		t.Fatalf("OTP should be 6 digits, got %q", code)
	}
	hash := otpStore.hashes["+919876543210"]
	if hash == "" {
		t.Fatal("OTP hash not stored")
	}
	if hash == code {
		t.Fatal("the stored value must be a hash, not the plain code")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		t.Fatalf("stored hash does not match sent code: %v", err)
	}
}

func TestVerifyOTPCreatesUserAndIssuesTokens(t *testing.T) {
	svc, userRepo, tokenRepo, otpStore, _ := newAuthServiceForTest(t)
	phone := "+919876543210"
	hash, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	_ = otpStore.Save(context.Background(), phone, string(hash), time.Minute)

	pair, err := svc.VerifyOTP(context.Background(), "9876543210", "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("both tokens must be issued")
	}

	user := userRepo.byPhone[phone]
	if user == nil {
		t.Fatal("first login should create the user")
	}
	if !user.IsActive {
		t.Fatal("new users start active")
	}
	if len(tokenRepo.byHash) != 1 {
		t.Fatalf("refresh tokens stored: want=1 got=%d", len(tokenRepo.byHash))
	}
	for h := range tokenRepo.byHash {
		if h == pair.RefreshToken {
			t.Fatal("refresh token must be stored hashed")
		}
	}
	if _, ok := otpStore.hashes[phone]; ok {
		t.Fatal("OTP must be consumed after successful verification")
	}

	// The access token must resolve back to the user.
	ctx, err := svc.SetContextFromToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != user.ID || rd.PhoneNumber != phone {
		t.Fatalf("request data: %+v", rd)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	svc, userRepo, _, otpStore, _ := newAuthServiceForTest(t)
	phone := "+919876543210"
	hash, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	_ = otpStore.Save(context.Background(), phone, string(hash), time.Minute)

	_, err := svc.VerifyOTP(context.Background(), phone, "000000")
	if !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("want ErrOTPInvalid, got %v", err)
	}
	if len(userRepo.byPhone) != 0 {
		t.Fatal("failed verification must not create a user")
	}
	if otpStore.attempts[phone] != 1 {
		t.Fatalf("attempt should be counted, got %d", otpStore.attempts[phone])
	}
}

func TestVerifyOTPTooManyAttempts(t *testing.T) {
	svc, _, _, otpStore, _ := newAuthServiceForTest(t)
	phone := "+919876543210"
	hash, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	_ = otpStore.Save(context.Background(), phone, string(hash), time.Minute)
	otpStore.attemptsE = ErrOTPMaxAttempts

	_, err := svc.VerifyOTP(context.Background(), phone, "123456")
	if !errors.Is(err, ErrOTPMaxAttempts) {
		t.Fatalf("want ErrOTPMaxAttempts, got %v", err)
	}
}

func TestVerifyOTPWithoutRequest(t *testing.T) {
	svc, _, _, _, _ := newAuthServiceForTest(t)
	_, err := svc.VerifyOTP(context.Background(), "+919876543210", "123456")
	if !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("want ErrOTPNotFound, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, userRepo, tokenRepo, otpStore, _ := newAuthServiceForTest(t)
	phone := "+919876543210"
	hash, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	_ = otpStore.Save(context.Background(), phone, string(hash), time.Minute)
	pair, err := svc.VerifyOTP(context.Background(), phone, "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	_ = userRepo // user created above

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh must rotate the token")
	}

	// The old token is revoked; reusing it fails.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("reused refresh token: want ErrRefreshInvalid, got %v", err)
	}

	revoked := 0
	for _, tok := range tokenRepo.byHash {
		if tok.Revoked {
			revoked++
		}
	}
	if revoked != 1 {
		t.Fatalf("revoked tokens: want=1 got=%d", revoked)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, tokenRepo, otpStore, _ := newAuthServiceForTest(t)
	phone := "+919876543210"
	hash, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	_ = otpStore.Save(context.Background(), phone, string(hash), time.Minute)
	pair, err := svc.VerifyOTP(context.Background(), phone, "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("after logout: want ErrRefreshInvalid, got %v", err)
	}
	_ = tokenRepo
}

func TestSetContextFromTokenRejectsForgedToken(t *testing.T) {
	svc, _, _, _, _ := newAuthServiceForTest(t)
	other := NewAuthService(testDB(t), logger.NewNop(), newFakeUserRepo(), newFakeUserTokenRepo(), newFakeOTPStore(), &fakeSMS{}, "other-secret", time.Hour, time.Hour)

	forged, err := other.(*authService).generateAccessToken(&types.User{PhoneNumber: "+911234567890"})
	if err != nil {
		t.Fatalf("generate forged token: %v", err)
	}
	if _, err := svc.SetContextFromToken(context.Background(), forged); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}
}
