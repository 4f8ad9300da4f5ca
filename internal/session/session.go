// Package session holds the cached identity projection that gates access
// token liveness: a signature-valid access token whose subject has no live
// session entry is rejected.
package session

import "context"

// Descriptor is the minimal projection cached per subject. Its presence,
// not its content, is what keeps access tokens alive.
type Descriptor struct {
	ID          string
	Email       string
	DisplayName string
	Roles       []string
}

type Cache interface {
	Set(ctx context.Context, subjectID string, d Descriptor) error
	Get(ctx context.Context, subjectID string) (Descriptor, bool, error)
	Delete(ctx context.Context, subjectID string) error
}
