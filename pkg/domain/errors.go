package domain

import "errors"

// ErrProjectNotFound is returned when a project id cannot be found in the store.
var ErrProjectNotFound = errors.New("project not found")

// ErrProjectExists is returned when creating a project whose id is taken.
var ErrProjectExists = errors.New("project already exists")
