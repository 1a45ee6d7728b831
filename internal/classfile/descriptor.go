package classfile

import (
	"fmt"
	"strings"
)

// MethodType is a parsed method descriptor.
type MethodType struct {
	Args   []string
	Return string
}

// ParseMethodDescriptor splits "(ILjava/lang/String;)V" into its argument
// and return field descriptors.
func ParseMethodDescriptor(desc string) (MethodType, error) {
	if !strings.HasPrefix(desc, "(") {
		return MethodType{}, fmt.Errorf("method descriptor %q: missing '('", desc)
	}
	var mt MethodType
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescLen(desc, i)
		if err != nil {
			return MethodType{}, err
		}
		mt.Args = append(mt.Args, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return MethodType{}, fmt.Errorf("method descriptor %q: missing ')'", desc)
	}
	i++
	if i < len(desc) && desc[i] == 'V' && i+1 == len(desc) {
		mt.Return = "V"
		return mt, nil
	}
	n, err := fieldDescLen(desc, i)
	if err != nil {
		return MethodType{}, err
	}
	if i+n != len(desc) {
		return MethodType{}, fmt.Errorf("method descriptor %q: trailing characters", desc)
	}
	mt.Return = desc[i:]
	return mt, nil
}

// fieldDescLen returns the length of the field descriptor starting at desc[i].
func fieldDescLen(desc string, i int) (int, error) {
	start := i
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("descriptor %q: truncated at %d", desc, start)
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i - start + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end <= 1 {
			return 0, fmt.Errorf("descriptor %q: unterminated class type at %d", desc, i)
		}
		return i - start + end + 1, nil
	default:
		return 0, fmt.Errorf("descriptor %q: invalid type %q at %d", desc, desc[i], i)
	}
}

// ValidFieldDescriptor reports whether desc is exactly one field descriptor.
func ValidFieldDescriptor(desc string) bool {
	n, err := fieldDescLen(desc, 0)
	return err == nil && n == len(desc)
}

// Slots returns how many local variable slots a value of the given field
// descriptor occupies.
func Slots(fieldDesc string) int {
	switch fieldDesc {
	case "J", "D":
		return 2
	case "V":
		return 0
	default:
		return 1
	}
}

// ArgumentSlots is the number of local slots the arguments of a method
// occupy, not counting the receiver.
func (mt MethodType) ArgumentSlots() int {
	n := 0
	for _, a := range mt.Args {
		n += Slots(a)
	}
	return n
}

// ArgumentsKey joins the argument descriptors with ';' the way method
// bucket keys are formed.
func (mt MethodType) ArgumentsKey() string {
	return strings.Join(mt.Args, ";")
}

// PackagePath returns the package part of an internal name ("p/q" for
// "p/q/A"), or "" for the default package.
func PackagePath(internalName string) string {
	if i := strings.LastIndexByte(internalName, '/'); i >= 0 {
		return internalName[:i]
	}
	return ""
}

// SimpleName returns the last segment of an internal name.
func SimpleName(internalName string) string {
	return internalName[strings.LastIndexByte(internalName, '/')+1:]
}
