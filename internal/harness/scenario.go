package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
)

// Scenario describes a merge declaratively: the classes of each version
// and what the superset must say about them.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Options tune the run.
	Options Options `yaml:"options,omitempty"`

	// Versions are ingested in order. At least one is required.
	Versions []VersionSpec `yaml:"versions"`

	// ExpectError names the failure the run must end with:
	// "invariant_violation" or "emission_error". Empty means success.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the inspected output.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Options mirror the job configuration knobs that change output.
type Options struct {
	NoStubs                bool `yaml:"no_stubs,omitempty"`
	IncludeNonPublicNested bool `yaml:"include_nonpublic_nested,omitempty"`
}

// VersionSpec is one version: a label and its classes.
type VersionSpec struct {
	Label   string      `yaml:"label"`
	Classes []ClassSpec `yaml:"classes"`
}

// ClassSpec is one class file. Access defaults to [public, super] when
// omitted; member access defaults to package-private.
type ClassSpec struct {
	Name        string       `yaml:"name"`
	Access      []string     `yaml:"access,omitempty"`
	Super       string       `yaml:"super,omitempty"`
	Interfaces  []string     `yaml:"interfaces,omitempty"`
	Kotlin      bool         `yaml:"kotlin,omitempty"`
	Annotations []string     `yaml:"annotations,omitempty"`
	Inner       []InnerSpec  `yaml:"inner,omitempty"`
	Fields      []MemberSpec `yaml:"fields,omitempty"`
	Methods     []MethodSpec `yaml:"methods,omitempty"`
}

// InnerSpec is one nested-class table entry.
type InnerSpec struct {
	Name   string   `yaml:"name"`
	Outer  string   `yaml:"outer,omitempty"`
	Inner  string   `yaml:"inner,omitempty"`
	Access []string `yaml:"access,omitempty"`
}

// MemberSpec is a field.
type MemberSpec struct {
	Name        string   `yaml:"name"`
	Desc        string   `yaml:"desc"`
	Access      []string `yaml:"access,omitempty"`
	Annotations []string `yaml:"annotations,omitempty"`
}

// MethodSpec is a method with optional per-parameter annotations.
type MethodSpec struct {
	Name        string          `yaml:"name"`
	Desc        string          `yaml:"desc"`
	Access      []string        `yaml:"access,omitempty"`
	Annotations []string        `yaml:"annotations,omitempty"`
	Parameters  []ParameterSpec `yaml:"parameters,omitempty"`
}

// ParameterSpec is one method parameter.
type ParameterSpec struct {
	Name        string   `yaml:"name,omitempty"`
	Annotations []string `yaml:"annotations,omitempty"`
}

// Assertion validates one declaration of the output. Class is always
// required; Field or Method (with Desc) narrow it to a member, and
// Parameter narrows a method to one parameter.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type      string `yaml:"type"`
	Class     string `yaml:"class"`
	Field     string `yaml:"field,omitempty"`
	Method    string `yaml:"method,omitempty"`
	Desc      string `yaml:"desc,omitempty"`
	Parameter *int   `yaml:"parameter,omitempty"`

	// Versions is the expected existence set (exists_in).
	Versions []string `yaml:"versions,omitempty"`

	// Changes is the expected history (alt_visibility, alt_modality).
	Changes []ChangeSpec `yaml:"changes,omitempty"`

	// Value is the expected nullability (nullability).
	Value string `yaml:"value,omitempty"`

	// Marker names the marker that must be absent (no_marker): one of
	// exists_in, alt_visibility, alt_modality, nullability.
	Marker string `yaml:"marker,omitempty"`
}

// ChangeSpec is one history entry.
type ChangeSpec struct {
	Version string `yaml:"version"`
	Value   string `yaml:"value"`
}

// Assertion type constants.
const (
	AssertExistsIn      = "exists_in"
	AssertAltVisibility = "alt_visibility"
	AssertAltModality   = "alt_modality"
	AssertNullability   = "nullability"
	AssertNoMarker      = "no_marker"
	AssertAbsent        = "absent"
)

// Expected error kinds.
const (
	ErrorInvariantViolation = "invariant_violation"
	ErrorEmission           = "emission_error"
)

var accessNames = map[string]uint16{
	"public":       classfile.AccPublic,
	"private":      classfile.AccPrivate,
	"protected":    classfile.AccProtected,
	"static":       classfile.AccStatic,
	"final":        classfile.AccFinal,
	"super":        classfile.AccSuper,
	"synchronized": classfile.AccSynchronized,
	"volatile":     classfile.AccVolatile,
	"bridge":       classfile.AccBridge,
	"transient":    classfile.AccTransient,
	"varargs":      classfile.AccVarargs,
	"native":       classfile.AccNative,
	"interface":    classfile.AccInterface,
	"abstract":     classfile.AccAbstract,
	"strict":       classfile.AccStrict,
	"synthetic":    classfile.AccSynthetic,
	"annotation":   classfile.AccAnnotation,
	"enum":         classfile.AccEnum,
}

// parseAccess folds flag names into access bits.
func parseAccess(names []string) (uint16, error) {
	var access uint16
	for _, n := range names {
		flag, ok := accessNames[n]
		if !ok {
			return 0, fmt.Errorf("unknown access flag %q", n)
		}
		access |= flag
	}
	return access, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Versions) == 0 {
		return fmt.Errorf("versions list is required and must be non-empty")
	}
	switch s.ExpectError {
	case "", ErrorInvariantViolation, ErrorEmission:
	default:
		return fmt.Errorf("unknown expect_error %q", s.ExpectError)
	}
	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	labels := make(map[string]bool, len(s.Versions))
	for i, v := range s.Versions {
		if v.Label == "" {
			return fmt.Errorf("versions[%d]: label is required", i)
		}
		if labels[v.Label] {
			return fmt.Errorf("versions[%d]: duplicate label %q", i, v.Label)
		}
		labels[v.Label] = true
		for j, c := range v.Classes {
			if err := validateClass(c); err != nil {
				return fmt.Errorf("versions[%d].classes[%d]: %w", i, j, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateClass(c ClassSpec) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	flagLists := [][]string{c.Access}
	for _, ic := range c.Inner {
		flagLists = append(flagLists, ic.Access)
	}
	for _, f := range c.Fields {
		if f.Name == "" || f.Desc == "" {
			return fmt.Errorf("field: name and desc are required")
		}
		flagLists = append(flagLists, f.Access)
	}
	for _, m := range c.Methods {
		if m.Name == "" || m.Desc == "" {
			return fmt.Errorf("method: name and desc are required")
		}
		flagLists = append(flagLists, m.Access)
	}
	for _, names := range flagLists {
		if _, err := parseAccess(names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Class == "" {
		return fmt.Errorf("assertions[%d]: class is required", index)
	}
	if a.Field != "" && a.Method != "" {
		return fmt.Errorf("assertions[%d]: field and method are exclusive", index)
	}
	if (a.Field != "" || a.Method != "") && a.Desc == "" {
		return fmt.Errorf("assertions[%d]: desc is required for a member", index)
	}
	if a.Parameter != nil && a.Method == "" {
		return fmt.Errorf("assertions[%d]: parameter requires method", index)
	}

	switch a.Type {
	case AssertExistsIn:
		if len(a.Versions) == 0 {
			return fmt.Errorf("assertions[%d]: versions list is required for exists_in", index)
		}
	case AssertAltVisibility, AssertAltModality:
		if len(a.Changes) == 0 {
			return fmt.Errorf("assertions[%d]: changes list is required for %s (use no_marker for none)", index, a.Type)
		}
		if a.Type == AssertAltModality && a.Field != "" {
			return fmt.Errorf("assertions[%d]: fields have no modality history", index)
		}
	case AssertNullability:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for nullability", index)
		}
	case AssertNoMarker:
		markers := []string{AssertExistsIn, AssertAltVisibility, AssertAltModality, AssertNullability}
		if !slices.Contains(markers, a.Marker) {
			return fmt.Errorf("assertions[%d]: marker must be one of %v", index, markers)
		}
	case AssertAbsent:
		if a.Parameter != nil {
			return fmt.Errorf("assertions[%d]: absent does not apply to parameters", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
