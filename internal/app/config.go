package app

import (
	"time"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/utils"
)

type Config struct {
	Port            string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RedisAddr       string
	RedisPassword   string
	ServiceName     string
	Environment     string
	Version         string
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 2592000, log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
	redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
	environment := utils.GetEnv("APP_ENV", "development", log)
	version := utils.GetEnv("APP_VERSION", "dev", log)
	return Config{
		Port:            port,
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		RedisAddr:       redisAddr,
		RedisPassword:   redisPassword,
		ServiceName:     "nomisafe-backend",
		Environment:     environment,
		Version:         version,
	}
}
