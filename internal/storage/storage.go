// Package storage provides the two per-client key-value areas the portal
// keeps session state in: a durable "local" area and a short-lived
// "session" area.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a key is absent from an area
var ErrNotFound = errors.New("storage: key not found")

// Persisted keys
const (
	KeyUser                = "user"
	KeyToken               = "token"
	KeyAccessTokenSnake    = "access_token"
	KeyRefreshTokenSnake   = "refresh_token"
	KeyAuthToken           = "authToken"
	KeyAccessToken         = "accessToken"
	KeyRefreshToken        = "refreshToken"
	KeySelectedPlan        = "selectedPlan"
	KeySelectedPlanID      = "selectedPlanId"
	KeyPaymentVerification = "paymentVerification"
	KeyCustomerInfo        = "customerInfo"
	KeyUserRole            = "userRole"
	KeySuperAdminDetected  = "superAdminDetected"
	KeySessionAuth         = "sessionAuthenticated"
	KeyMonthlyActiveTime   = "monthlyActiveTime"
)

// KnownKeys is every key the portal writes. Logout removes all of them.
var KnownKeys = []string{
	KeyUser,
	KeyToken,
	KeyAccessTokenSnake,
	KeyRefreshTokenSnake,
	KeyAuthToken,
	KeyAccessToken,
	KeyRefreshToken,
	KeySelectedPlan,
	KeySelectedPlanID,
	KeyPaymentVerification,
	KeyCustomerInfo,
	KeyUserRole,
	KeySuperAdminDetected,
	KeySessionAuth,
	KeyMonthlyActiveTime,
}

// TokenKeys are the access token aliases, most preferred first.
var TokenKeys = []string{KeyToken, KeyAccessTokenSnake, KeyAuthToken, KeyAccessToken}

// RefreshTokenKeys are the refresh token aliases.
var RefreshTokenKeys = []string{KeyRefreshTokenSnake, KeyRefreshToken}

// Area is a key-value store partitioned by client ID.
type Area interface {
	Name() string
	Get(ctx context.Context, clientID, key string) (string, error)
	Set(ctx context.Context, clientID, key, value string) error
	Delete(ctx context.Context, clientID string, keys ...string) error
	Keys(ctx context.Context, clientID string) ([]string, error)
	Clear(ctx context.Context, clientID string) error
}

// Areas groups the two storage areas.
type Areas struct {
	Local   Area
	Session Area
}

// All returns both areas, local first.
func (a Areas) All() []Area {
	return []Area{a.Local, a.Session}
}

// GetFirst returns the first non-empty value among keys.
func GetFirst(ctx context.Context, area Area, clientID string, keys ...string) (string, error) {
	for _, key := range keys {
		val, err := area.Get(ctx, clientID, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if val != "" {
			return val, nil
		}
	}
	return "", ErrNotFound
}

// SetAll writes value under every key.
func SetAll(ctx context.Context, area Area, clientID, value string, keys ...string) error {
	for _, key := range keys {
		if err := area.Set(ctx, clientID, key, value); err != nil {
			return err
		}
	}
	return nil
}

func namespaced(prefix, clientID, key string) string {
	return prefix + ":" + clientID + ":" + key
}

func clientPrefix(prefix, clientID string) string {
	return prefix + ":" + clientID + ":"
}

func stripPrefix(full, prefix string) string {
	return strings.TrimPrefix(full, prefix)
}
