package meta

import (
	"github.com/LDVSOFT/TestCompat/internal/classfile"
	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// Annotation and enum descriptors.
const (
	ExistsInType              = "Lssg/api/ExistsIn;"
	AlternativeVisibilityType = "Lssg/api/AlternativeVisibility;"
	AlternativeModalityType   = "Lssg/api/AlternativeModality;"
	NotNullType               = "Lssg/api/NotNull;"
	NullableType              = "Lssg/api/Nullable;"

	VisibilityEnumType = "Lssg/api/Visibility;"
	ModalityEnumType   = "Lssg/api/Modality;"
)

// Element names.
const (
	elemVersions   = "versions"
	elemVisibility = "visibility"
	elemModality   = "modality"
)

// IsMarker reports whether typeDesc is one of the annotations this package
// owns. Readers drop them so that merging generated output again does not
// stack markers.
func IsMarker(typeDesc string) bool {
	switch typeDesc {
	case ExistsInType, AlternativeVisibilityType, AlternativeModalityType, NotNullType, NullableType:
		return true
	}
	return false
}

// ExistsIn builds the existence marker. Versions are listed in natural order.
func ExistsIn(vs *ir.VersionSet) classfile.Annotation {
	return classfile.Annotation{
		Type:    ExistsInType,
		Visible: true,
		Elements: []classfile.Element{
			{Name: elemVersions, Value: stringArray(vs.Strings())},
		},
	}
}

// AlternativeVisibility builds the visibility history marker; ok is false
// when the history is empty and no marker should be written.
func AlternativeVisibility(h *ir.History[ir.Visibility]) (classfile.Annotation, bool) {
	return historyMarker(h, AlternativeVisibilityType, elemVisibility, VisibilityEnumType)
}

// AlternativeModality is AlternativeVisibility for modality.
func AlternativeModality(h *ir.History[ir.Modality]) (classfile.Annotation, bool) {
	return historyMarker(h, AlternativeModalityType, elemModality, ModalityEnumType)
}

type named interface {
	comparable
	String() string
}

func historyMarker[T named](h *ir.History[T], typeDesc, elem, enumType string) (classfile.Annotation, bool) {
	if h.Empty() {
		return classfile.Annotation{}, false
	}
	changes := h.Changes()
	versions := make([]string, len(changes))
	values := make([]classfile.ElementValue, len(changes))
	for i, ch := range changes {
		versions[i] = ch.Version.String()
		values[i] = classfile.EnumValue(enumType, ch.Value.String())
	}
	return classfile.Annotation{
		Type:    typeDesc,
		Visible: true,
		Elements: []classfile.Element{
			{Name: elemVersions, Value: stringArray(versions)},
			{Name: elem, Value: classfile.ArrayValue(values...)},
		},
	}, true
}

// NullabilityMarker builds @NotNull or @Nullable; ok is false for the
// default nullability.
func NullabilityMarker(n ir.Nullability) (classfile.Annotation, bool) {
	switch n {
	case ir.NullabilityNotNull:
		return classfile.Annotation{Type: NotNullType, Visible: true}, true
	case ir.NullabilityNullable:
		return classfile.Annotation{Type: NullableType, Visible: true}, true
	}
	return classfile.Annotation{}, false
}

func stringArray(ss []string) classfile.ElementValue {
	values := make([]classfile.ElementValue, len(ss))
	for i, s := range ss {
		values[i] = classfile.StringValue(s)
	}
	return classfile.ArrayValue(values...)
}
