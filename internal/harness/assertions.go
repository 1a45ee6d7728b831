package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/LDVSOFT/TestCompat/internal/ir"
	"github.com/LDVSOFT/TestCompat/internal/meta"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Target   string // Declaration the assertion was about
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Target)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// target renders the declaration an assertion names.
func target(a Assertion) string {
	switch {
	case a.Field != "":
		return fmt.Sprintf("%s.%s:%s", a.Class, a.Field, a.Desc)
	case a.Method != "" && a.Parameter != nil:
		return fmt.Sprintf("%s.%s%s#%d", a.Class, a.Method, a.Desc, *a.Parameter)
	case a.Method != "":
		return fmt.Sprintf("%s.%s%s", a.Class, a.Method, a.Desc)
	default:
		return a.Class
	}
}

// lookup finds the metadata an assertion names. ok is false when the
// declaration was not emitted. A parameter past the end of the annotation
// table exists but carries no markers.
func lookup(classes map[string]*meta.ClassMetadata, a Assertion) (md *meta.Metadata, ok bool) {
	cls, found := classes[a.Class]
	if !found {
		return nil, false
	}
	switch {
	case a.Field != "":
		md = cls.Field(a.Field, a.Desc)
		return md, md != nil
	case a.Method != "":
		m := cls.Method(a.Method, a.Desc)
		if m == nil {
			return nil, false
		}
		if a.Parameter == nil {
			return &m.Metadata, true
		}
		if *a.Parameter < len(m.Parameters) {
			return &m.Parameters[*a.Parameter], true
		}
		return &meta.Metadata{}, true
	default:
		return &cls.Metadata, true
	}
}

func assertExistsIn(md *meta.Metadata, a Assertion) error {
	if slices.Equal(md.ExistsIn, a.Versions) {
		return nil
	}
	actual := "no marker"
	if md.ExistsIn != nil {
		actual = fmt.Sprintf("%v", md.ExistsIn)
	}
	return &AssertionError{Type: a.Type, Target: target(a), Expected: fmt.Sprintf("%v", a.Versions), Actual: actual}
}

func assertHistory[T interface {
	comparable
	fmt.Stringer
}](have []ir.Change[T], a Assertion) error {
	got := make([]ChangeSpec, len(have))
	for i, c := range have {
		got[i] = ChangeSpec{Version: c.Version.String(), Value: c.Value.String()}
	}
	if have != nil && slices.Equal(got, a.Changes) {
		return nil
	}
	actual := "no marker"
	if have != nil {
		actual = formatChanges(got)
	}
	return &AssertionError{Type: a.Type, Target: target(a), Expected: formatChanges(a.Changes), Actual: actual}
}

func formatChanges(cs []ChangeSpec) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.Version + "=" + c.Value
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func assertNullability(md *meta.Metadata, a Assertion) error {
	want, err := ir.ParseNullability(a.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", target(a), err)
	}
	if md.Nullability == want {
		return nil
	}
	return &AssertionError{Type: a.Type, Target: target(a), Expected: want.String(), Actual: md.Nullability.String()}
}

func assertNoMarker(md *meta.Metadata, a Assertion) error {
	var present bool
	switch a.Marker {
	case AssertExistsIn:
		present = md.ExistsIn != nil
	case AssertAltVisibility:
		present = md.AltVisibility != nil
	case AssertAltModality:
		present = md.AltModality != nil
	case AssertNullability:
		present = md.Nullability != ir.NullabilityDefault
	}
	if !present {
		return nil
	}
	return &AssertionError{Type: a.Type, Target: target(a), Expected: "no " + a.Marker + " marker", Actual: "marker present"}
}

// EvaluateAssertions checks all assertions against the inspected output.
// Returns a list of error messages (empty if all pass).
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		md, found := lookup(result.Classes, assertion)
		var err error
		switch {
		case assertion.Type == AssertAbsent:
			if found {
				err = &AssertionError{Type: assertion.Type, Target: target(assertion), Expected: "not emitted", Actual: "emitted"}
			}
		case !found:
			err = &AssertionError{Type: assertion.Type, Target: target(assertion), Expected: "emitted", Actual: "not emitted"}
		case assertion.Type == AssertExistsIn:
			err = assertExistsIn(md, assertion)
		case assertion.Type == AssertAltVisibility:
			err = assertHistory(md.AltVisibility, assertion)
		case assertion.Type == AssertAltModality:
			err = assertHistory(md.AltModality, assertion)
		case assertion.Type == AssertNullability:
			err = assertNullability(md, assertion)
		case assertion.Type == AssertNoMarker:
			err = assertNoMarker(md, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
