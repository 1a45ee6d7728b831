package ir

import "github.com/LDVSOFT/TestCompat/internal/classfile"

// WidestVisibility is the most permissive visibility a declaration had in
// any version: the current one when it never diverged.
func WidestVisibility(access uint16, h *History[Visibility]) Visibility {
	widest := VisibilityOf(access)
	for _, v := range h.Values() {
		if v.WiderThan(widest) {
			widest = v
		}
	}
	return widest
}

// EffectiveAccess applies the override policy to the access flags recorded
// for the first version: visibility is widened to WidestVisibility, FINAL is
// dropped when any version was not final, and, if clearAbstract is set,
// ABSTRACT is dropped when any version had a body. A nil modality history
// leaves the modality bits alone.
func EffectiveAccess(access uint16, vis *History[Visibility], mod *History[Modality], clearAbstract bool) uint16 {
	access = WithVisibility(access, WidestVisibility(access, vis))
	if mod == nil {
		return access
	}
	for _, m := range mod.Values() {
		if m != ModalityFinal {
			access &^= classfile.AccFinal
		}
		if clearAbstract && m != ModalityAbstract {
			access &^= classfile.AccAbstract
		}
	}
	return access
}

// ClassFileVisibility narrows v to what the class-level access flags can
// express; the exact visibility of a member class lives in its own
// nested-class entry.
func ClassFileVisibility(v Visibility) Visibility {
	switch v {
	case VisibilityPublic, VisibilityProtected:
		return VisibilityPublic
	default:
		return VisibilityPackagePrivate
	}
}
