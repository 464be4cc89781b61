package external

import (
	"context"
	"strings"
)

type credentialKey struct{ service string }

// WithCredential attaches a per-request API key for service to ctx. Blank
// keys are ignored.
func WithCredential(ctx context.Context, service, key string) context.Context {
	key = strings.TrimSpace(key)
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialKey{service}, key)
}

// Credential resolves the API key for a call: the per-request key when set,
// otherwise fallback. It returns ErrMissingCredential for service when both
// are blank.
func Credential(ctx context.Context, service, fallback string) (string, error) {
	if key, ok := ctx.Value(credentialKey{service}).(string); ok && key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(fallback); key != "" {
		return key, nil
	}
	return "", MissingCredential(service)
}
