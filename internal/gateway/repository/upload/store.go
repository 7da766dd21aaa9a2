package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store keeps uploaded study documents for the lifetime of a viewer.
// Objects are grouped by owner (the handoff id).
type Store interface {
	Put(ctx context.Context, owner, name string, content []byte, contentType string) error
	Get(ctx context.Context, owner, name string) ([]byte, error)
	List(ctx context.Context, owner string) ([]string, error)
	// DeleteAll removes every object of owner.
	DeleteAll(ctx context.Context, owner string) error
}

var ErrNotFound = errors.New("upload not found")

func validate(owner, name string) (string, string, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if owner == "" {
		return "", "", fmt.Errorf("owner is required")
	}
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	return owner, name, nil
}

func objectKey(owner, name string) string {
	return owner + "/" + name
}
