package ir

import (
	"fmt"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
)

// Visibility is the access level abstracted from raw access flags.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPackagePrivate
	VisibilityPrivate
)

var visibilityNames = [...]string{"PUBLIC", "PROTECTED", "PACKAGE_PRIVATE", "PRIVATE"}

func (v Visibility) String() string {
	if v < 0 || int(v) >= len(visibilityNames) {
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
	return visibilityNames[v]
}

// ParseVisibility is the inverse of Visibility.String.
func ParseVisibility(name string) (Visibility, error) {
	for i, n := range visibilityNames {
		if n == name {
			return Visibility(i), nil
		}
	}
	return 0, fmt.Errorf("unknown visibility %q", name)
}

// VisibilityOf extracts the visibility encoded in access.
func VisibilityOf(access uint16) Visibility {
	switch {
	case access&classfile.AccPublic != 0:
		return VisibilityPublic
	case access&classfile.AccProtected != 0:
		return VisibilityProtected
	case access&classfile.AccPrivate != 0:
		return VisibilityPrivate
	default:
		return VisibilityPackagePrivate
	}
}

// Flags returns the access bits encoding v.
func (v Visibility) Flags() uint16 {
	switch v {
	case VisibilityPublic:
		return classfile.AccPublic
	case VisibilityProtected:
		return classfile.AccProtected
	case VisibilityPrivate:
		return classfile.AccPrivate
	default:
		return 0
	}
}

// rank orders visibilities from most to least permissive.
func (v Visibility) rank() int {
	switch v {
	case VisibilityPublic:
		return 3
	case VisibilityProtected:
		return 2
	case VisibilityPackagePrivate:
		return 1
	default:
		return 0
	}
}

// WiderThan reports whether v grants access to strictly more clients than o.
func (v Visibility) WiderThan(o Visibility) bool {
	return v.rank() > o.rank()
}

// WithVisibility replaces the visibility bits of access.
func WithVisibility(access uint16, v Visibility) uint16 {
	return access&^classfile.VisibilityMask | v.Flags()
}

// Modality is final / open / abstract abstracted from raw access flags.
type Modality int

const (
	ModalityFinal Modality = iota
	ModalityOpen
	ModalityAbstract
)

var modalityNames = [...]string{"FINAL", "OPEN", "ABSTRACT"}

func (m Modality) String() string {
	if m < 0 || int(m) >= len(modalityNames) {
		return fmt.Sprintf("Modality(%d)", int(m))
	}
	return modalityNames[m]
}

// ParseModality is the inverse of Modality.String.
func ParseModality(name string) (Modality, error) {
	for i, n := range modalityNames {
		if n == name {
			return Modality(i), nil
		}
	}
	return 0, fmt.Errorf("unknown modality %q", name)
}

// ModalityOf extracts the modality encoded in access. Interfaces carry
// ACC_ABSTRACT and so are ABSTRACT.
func ModalityOf(access uint16) Modality {
	switch {
	case access&classfile.AccAbstract != 0:
		return ModalityAbstract
	case access&classfile.AccFinal != 0:
		return ModalityFinal
	default:
		return ModalityOpen
	}
}

// Nullability is the declared nullness of a field, method return value or
// parameter. Only the latest observed value is kept.
type Nullability int

const (
	NullabilityDefault Nullability = iota
	NullabilityNotNull
	NullabilityNullable
)

func (n Nullability) String() string {
	switch n {
	case NullabilityNotNull:
		return "NOT_NULL"
	case NullabilityNullable:
		return "NULLABLE"
	default:
		return "DEFAULT"
	}
}

// ParseNullability is the inverse of Nullability.String.
func ParseNullability(name string) (Nullability, error) {
	switch name {
	case "", "DEFAULT":
		return NullabilityDefault, nil
	case "NOT_NULL":
		return NullabilityNotNull, nil
	case "NULLABLE":
		return NullabilityNullable, nil
	}
	return 0, fmt.Errorf("unknown nullability %q", name)
}
