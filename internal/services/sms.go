package services

import (
	"context"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
)

// SMSProvider delivers one-time passwords. Delivery mechanics live behind
// this interface; the default implementation only logs, which is what local
// and CI environments want.
type SMSProvider interface {
	SendOTP(ctx context.Context, phoneNumber, code string) error
}

type logSMSProvider struct {
	log *logger.Logger
}

func NewLogSMSProvider(baseLog *logger.Logger) SMSProvider {
	return &logSMSProvider{log: baseLog.With("service", "SMSProvider")}
}

func (p *logSMSProvider) SendOTP(ctx context.Context, phoneNumber, code string) error {
	p.log.Info("OTP issued", "phone_number", phoneNumber, "code", code)
	return nil
}
