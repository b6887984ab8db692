package types

import "errors"

// ErrNotFound is returned by store updates that target a missing row.
// Store lookups return (nil, nil) for missing rows instead.
var ErrNotFound = errors.New("not found")

// ErrSuperseded is returned when a newer compile run has claimed the artifact.
var ErrSuperseded = errors.New("superseded by a newer compilation")
