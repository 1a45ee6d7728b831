// Package dump renders a class file as human-readable text, one declaration
// per block, in the layout of a bytecode trace.
package dump

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/LDVSOFT/TestCompat/internal/classfile"
)

// Kind selects which access-flag names apply; several bits mean different
// things on classes, fields and methods.
type Kind int

const (
	KindClass Kind = iota
	KindField
	KindMethod
	KindInner
)

type flagName struct {
	flag uint16
	name string
}

var (
	visibilityNames = []flagName{
		{classfile.AccPublic, "public"},
		{classfile.AccPrivate, "private"},
		{classfile.AccProtected, "protected"},
	}
	classNames = []flagName{
		{classfile.AccStatic, "static"},
		{classfile.AccFinal, "final"},
		{classfile.AccAbstract, "abstract"},
		{classfile.AccSynthetic, "synthetic"},
		{classfile.AccAnnotation, "@interface"},
		{classfile.AccEnum, "enum"},
	}
	fieldNames = []flagName{
		{classfile.AccStatic, "static"},
		{classfile.AccFinal, "final"},
		{classfile.AccVolatile, "volatile"},
		{classfile.AccTransient, "transient"},
		{classfile.AccSynthetic, "synthetic"},
		{classfile.AccEnum, "enum"},
	}
	methodNames = []flagName{
		{classfile.AccStatic, "static"},
		{classfile.AccFinal, "final"},
		{classfile.AccSynchronized, "synchronized"},
		{classfile.AccBridge, "bridge"},
		{classfile.AccVarargs, "varargs"},
		{classfile.AccNative, "native"},
		{classfile.AccAbstract, "abstract"},
		{classfile.AccStrict, "strictfp"},
		{classfile.AccSynthetic, "synthetic"},
	}
)

// Access renders the modifiers of access for kind, each followed by a
// space. Classes additionally get "class" or "interface".
func Access(access uint16, kind Kind) string {
	var b strings.Builder
	write := func(names []flagName) {
		for _, fn := range names {
			if access&fn.flag != 0 {
				b.WriteString(fn.name)
				b.WriteByte(' ')
			}
		}
	}
	write(visibilityNames)
	switch kind {
	case KindClass, KindInner:
		write(classNames)
		if access&classfile.AccInterface != 0 {
			b.WriteString("interface ")
		} else if kind == KindClass && access&(classfile.AccEnum|classfile.AccAnnotation) == 0 {
			b.WriteString("class ")
		}
	case KindField:
		write(fieldNames)
	case KindMethod:
		write(methodNames)
	}
	return b.String()
}

// Write renders cls to w.
func Write(w io.Writer, cls *classfile.Class) error {
	p := &printer{w: w}
	p.class(cls)
	return p.err
}

// String renders cls as a string.
func String(cls *classfile.Class) (string, error) {
	var b strings.Builder
	if err := Write(&b, cls); err != nil {
		return "", err
	}
	return b.String(), nil
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, strings.Repeat("  ", indent)+format+"\n", args...)
}

func (p *printer) class(cls *classfile.Class) {
	p.printf(0, "// class version %d.%d (%d)", cls.MajorVersion, cls.MinorVersion, cls.MajorVersion)
	p.printf(0, "// access flags 0x%X", cls.Access)
	if cls.Signature != "" {
		p.printf(0, "// signature %s", cls.Signature)
	}
	header := Access(cls.Access, KindClass) + cls.Name
	if cls.SuperName != "" {
		header += " extends " + cls.SuperName
	}
	if len(cls.Interfaces) > 0 {
		header += " implements " + strings.Join(cls.Interfaces, " ")
	}
	p.printf(0, "%s {", header)

	if em := cls.EnclosingMethod; em != nil {
		p.printf(0, "")
		if em.MethodName != "" {
			p.printf(1, "OUTERCLASS %s %s%s", em.Owner, em.MethodName, em.MethodDesc)
		} else {
			p.printf(1, "OUTERCLASS %s", em.Owner)
		}
	}
	if len(cls.Annotations) > 0 {
		p.printf(0, "")
		p.annotations(1, "", cls.Annotations)
	}
	for _, ic := range cls.InnerClasses {
		p.printf(0, "")
		p.printf(1, "// access flags 0x%X", ic.Access)
		p.printf(1, "%sINNERCLASS %s %s %s", Access(ic.Access, KindInner), ic.Name, orNull(ic.OuterName), orNull(ic.InnerName))
	}
	for _, f := range cls.Fields {
		p.printf(0, "")
		p.field(f)
	}
	for _, m := range cls.Methods {
		p.printf(0, "")
		p.method(m)
	}
	p.printf(0, "}")
}

func (p *printer) field(f *classfile.Field) {
	p.printf(1, "// access flags 0x%X", f.Access)
	if f.Signature != "" {
		p.printf(1, "// signature %s", f.Signature)
	}
	line := Access(f.Access, KindField) + f.Desc + " " + f.Name
	if f.Value != nil {
		line += " = " + constant(f.Value)
	}
	p.printf(1, "%s", line)
	p.annotations(1, "", f.Annotations)
}

func (p *printer) method(m *classfile.Method) {
	p.printf(1, "// access flags 0x%X", m.Access)
	if m.Signature != "" {
		p.printf(1, "// signature %s", m.Signature)
	}
	p.printf(1, "%s%s%s", Access(m.Access, KindMethod), m.Name, m.Desc)
	if len(m.Exceptions) > 0 {
		p.printf(2, "throws %s", strings.Join(m.Exceptions, " "))
	}
	for _, mp := range m.Parameters {
		p.printf(2, "// parameter %s%s", Access(mp.Access, KindField), orNull(mp.Name))
	}
	p.annotations(2, "", m.Annotations)
	for i, anns := range m.ParameterAnnotations {
		p.annotations(2, "// parameter "+strconv.Itoa(i)+" ", anns)
	}
	if m.AnnotationDefault != nil {
		p.printf(2, "default=%s", elementValue(*m.AnnotationDefault))
	}
	if m.Code == nil {
		return
	}
	insns, err := m.Code.Instructions()
	if err != nil {
		p.printf(2, "// code: %v", err)
	}
	for _, in := range insns {
		p.printf(2, "%s", in)
	}
	p.printf(2, "MAXSTACK = %d", m.Code.MaxStack)
	p.printf(2, "MAXLOCALS = %d", m.Code.MaxLocals)
}

func (p *printer) annotations(indent int, prefix string, anns []classfile.Annotation) {
	for _, a := range anns {
		suffix := ""
		if !a.Visible {
			suffix = " // invisible"
		}
		p.printf(indent, "%s%s%s", prefix, annotation(a), suffix)
	}
}

func annotation(a classfile.Annotation) string {
	if len(a.Elements) == 0 {
		return "@" + a.Type
	}
	parts := make([]string, 0, len(a.Elements))
	for _, e := range a.Elements {
		parts = append(parts, e.Name+"="+elementValue(e.Value))
	}
	return "@" + a.Type + "(" + strings.Join(parts, ", ") + ")"
}

func elementValue(v classfile.ElementValue) string {
	switch v.Tag {
	case classfile.TagEnum:
		return v.EnumType + "." + v.EnumName
	case classfile.TagClass:
		return v.Class + ".class"
	case classfile.TagAnnotation:
		if v.Annotation == nil {
			return "@?"
		}
		return annotation(*v.Annotation)
	case classfile.TagArray:
		parts := make([]string, 0, len(v.Array))
		for _, e := range v.Array {
			parts = append(parts, elementValue(e))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return constant(v.Const)
	}
}

func constant(v any) string {
	switch c := v.(type) {
	case string:
		return strconv.Quote(c)
	case int64:
		return strconv.FormatInt(c, 10) + "L"
	case float32:
		return strconv.FormatFloat(float64(c), 'g', -1, 32) + "F"
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64) + "D"
	default:
		return fmt.Sprint(c)
	}
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
