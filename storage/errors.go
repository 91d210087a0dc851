package storage

import (
	"errors"

	"github.com/go-redsync/redsync/v4"
)

var (
	ErrLockFailed            = redsync.ErrFailed
	ErrLockAlreadyExpired    = redsync.ErrLockAlreadyExpired
	ErrManifestInvalid       = errors.New("manifest is invalid")
	ErrArtifactStoreNotFound = errors.New("artifact store not found")
	ErrVersionNotSet         = errors.New("current version is not set")
	ErrObjectNotFound        = errors.New("object not found")
)
