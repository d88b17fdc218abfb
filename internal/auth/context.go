package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxAccountID ctxKey = iota
	ctxDeviceID
	ctxPlatform
)

func WithIdentity(ctx context.Context, accountID, deviceID, platform string) context.Context {
	ctx = context.WithValue(ctx, ctxAccountID, accountID)
	ctx = context.WithValue(ctx, ctxDeviceID, deviceID)
	ctx = context.WithValue(ctx, ctxPlatform, platform)
	return ctx
}

func AccountID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxAccountID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("account_id not in context")
}

func DeviceID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxDeviceID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("device_id not in context")
}

func Platform(ctx context.Context) (string, error) {
	v := ctx.Value(ctxPlatform)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("platform not in context")
}
