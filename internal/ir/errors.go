package ir

import (
	"errors"
	"fmt"
)

// MemberKind distinguishes the two keyed member tables of a class.
type MemberKind string

const (
	MemberField  MemberKind = "field"
	MemberMethod MemberKind = "method"
)

// KeyCollisionError is returned by AddField and AddMethod when the key is
// already taken. Within one version's input this means corrupt data.
type KeyCollisionError struct {
	Class string
	Kind  MemberKind
	Key   string
}

func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("duplicate %s key %q in class %s", e.Kind, e.Key, e.Class)
}

// IsKeyCollision reports whether err is or wraps a KeyCollisionError.
func IsKeyCollision(err error) bool {
	var kc *KeyCollisionError
	return errors.As(err, &kc)
}
