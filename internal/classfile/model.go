package classfile

// Class is the symbolic form of one class file.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Access       uint16

	// Name is the internal name, e.g. "p/A".
	Name string
	// SuperName is empty only for java/lang/Object and module-info.
	SuperName  string
	Interfaces []string
	Signature  string

	Fields  []*Field
	Methods []*Method

	Annotations     []Annotation
	InnerClasses    []InnerClass
	EnclosingMethod *EnclosingMethod
}

// Field is one field_info structure.
type Field struct {
	Access    uint16
	Name      string
	Desc      string
	Signature string

	// Value is the ConstantValue attribute: int32, int64, float32, float64
	// or string. nil when absent.
	Value any

	Annotations []Annotation
}

// Method is one method_info structure.
type Method struct {
	Access     uint16
	Name       string
	Desc       string
	Signature  string
	Exceptions []string

	Annotations []Annotation
	// ParameterAnnotations is indexed by parameter position. Visible and
	// invisible annotations share a slot and are told apart by
	// Annotation.Visible.
	ParameterAnnotations [][]Annotation
	// Parameters is the MethodParameters attribute.
	Parameters []MethodParameter

	AnnotationDefault *ElementValue

	// Code is nil for abstract and native methods.
	Code *Code
}

// MethodParameter is one entry of the MethodParameters attribute.
type MethodParameter struct {
	Name   string
	Access uint16
}

// InnerClass is one entry of the InnerClasses attribute.
type InnerClass struct {
	Name      string
	OuterName string
	InnerName string
	Access    uint16
}

// EnclosingMethod is the EnclosingMethod attribute of local and anonymous
// classes. MethodName and MethodDesc are empty when the class is enclosed by
// an initializer rather than a method.
type EnclosingMethod struct {
	Owner      string
	MethodName string
	MethodDesc string
}

// Annotation is one annotation structure.
type Annotation struct {
	// Type is the field descriptor of the annotation interface,
	// e.g. "Ljava/lang/Deprecated;".
	Type     string
	Visible  bool
	Elements []Element
}

// Element is one element_value_pair.
type Element struct {
	Name  string
	Value ElementValue
}

// Element value tags.
const (
	TagByte       byte = 'B'
	TagChar       byte = 'C'
	TagDouble     byte = 'D'
	TagFloat      byte = 'F'
	TagInt        byte = 'I'
	TagLong       byte = 'J'
	TagShort      byte = 'S'
	TagBoolean    byte = 'Z'
	TagString     byte = 's'
	TagEnum       byte = 'e'
	TagClass      byte = 'c'
	TagAnnotation byte = '@'
	TagArray      byte = '['
)

// ElementValue is a tagged union over the element_value kinds. Which fields
// are meaningful depends on Tag.
type ElementValue struct {
	Tag byte

	// Const holds int32 for B C I S Z, int64 for J, float32 for F,
	// float64 for D and string for s.
	Const any

	EnumType string
	EnumName string

	// Class is a return descriptor, e.g. "Ljava/lang/String;" or "V".
	Class string

	Annotation *Annotation
	Array      []ElementValue
}

// StringValue builds an 's' element value.
func StringValue(s string) ElementValue {
	return ElementValue{Tag: TagString, Const: s}
}

// EnumValue builds an 'e' element value.
func EnumValue(typeDesc, name string) ElementValue {
	return ElementValue{Tag: TagEnum, EnumType: typeDesc, EnumName: name}
}

// ArrayValue builds a '[' element value.
func ArrayValue(values ...ElementValue) ElementValue {
	if values == nil {
		values = []ElementValue{}
	}
	return ElementValue{Tag: TagArray, Array: values}
}

// Element returns the value of the named element and whether it exists.
func (a *Annotation) Element(name string) (ElementValue, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return ElementValue{}, false
}

// FindAnnotation returns the first annotation of the given type.
func FindAnnotation(anns []Annotation, typeDesc string) (*Annotation, bool) {
	for i := range anns {
		if anns[i].Type == typeDesc {
			return &anns[i], true
		}
	}
	return nil, false
}

// Code is the Code attribute of a method.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16

	// Insns is set for bodies built with an Assembler.
	Insns []Insn

	// Raw is the bytecode as read from a class file, together with the
	// pool needed to resolve it.
	Raw  []byte
	pool *readPool
}

// Field returns the field with the given name and descriptor.
func (c *Class) Field(name, desc string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Desc == desc {
			return f
		}
	}
	return nil
}

// Method returns the method with the given name and descriptor.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}
