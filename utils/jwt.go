package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kairos/config"
	"kairos/models"
)

type Claims struct {
	UserID       uint   `json:"user_id"`
	TokenVersion int    `json:"token_version"`
	SessionID    string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// GenerateJWTToken issues an access/refresh token pair for a new session and
// records the refresh token so the session can be revoked later.
func GenerateJWTToken(user *models.User, userAgent, ip string) (string, string, string, error) {
	sessionID := uuid.NewString()

	accessClaims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		SessionID:    sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(config.AppConfig.EncryptionKey))
	if err != nil {
		return "", "", "", err
	}

	refreshClaims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		SessionID:    sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(refreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(config.AppConfig.EncryptionKey))
	if err != nil {
		return "", "", "", err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		SessionID: sessionID,
		Token:     refreshTokenString,
		UserAgent: userAgent,
		IPAddress: ip,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := config.DB.Create(&record).Error; err != nil {
		return "", "", "", err
	}

	return accessTokenString, refreshTokenString, sessionID, nil
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.EncryptionKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// RefreshTokens rotates a refresh token: the old session record is revoked
// and a fresh pair is issued.
func RefreshTokens(refreshToken string) (string, string, error) {
	claims, err := ParseJWTToken(refreshToken)
	if err != nil {
		return "", "", err
	}

	var record models.RefreshToken
	if err := config.DB.Where("token = ? AND is_revoked = ?", refreshToken, false).First(&record).Error; err != nil {
		return "", "", errors.New("refresh token not recognized")
	}
	if time.Now().After(record.ExpiresAt) {
		return "", "", errors.New("refresh token expired")
	}

	var user models.User
	if err := config.DB.First(&user, claims.UserID).Error; err != nil {
		return "", "", errors.New("user not found")
	}
	if claims.TokenVersion != user.TokenVersion {
		return "", "", errors.New("invalid token version")
	}

	if err := config.DB.Model(&record).Update("is_revoked", true).Error; err != nil {
		return "", "", err
	}

	access, refresh, _, err := GenerateJWTToken(&user, record.UserAgent, record.IPAddress)
	return access, refresh, err
}

// RevokeSession revokes every refresh token belonging to a session
func RevokeSession(sessionID string) error {
	return config.DB.Model(&models.RefreshToken{}).
		Where("session_id = ? AND is_revoked = ?", sessionID, false).
		Update("is_revoked", true).Error
}
