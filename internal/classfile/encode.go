package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// ErrRawCode is returned when asked to encode a body that was decoded from
// another class file rather than assembled.
var ErrRawCode = errors.New("raw bytecode cannot be re-encoded")

// encoder writes the parts of a class file that follow the constant pool.
// The pool is written last but placed first.
type encoder struct {
	pool *writePool
	out  []byte
	err  error
}

func (e *encoder) fail(err error) {
	if e.err == nil && err != nil {
		e.err = err
	}
}

func (e *encoder) u1(v uint8) {
	e.out = append(e.out, v)
}

func (e *encoder) u2(v uint16) {
	e.out = binary.BigEndian.AppendUint16(e.out, v)
}

// count writes a u2 length prefix.
func (e *encoder) count(n int, what string) {
	v, err := safecast.Conv[uint16](n)
	if err != nil {
		e.fail(fmt.Errorf("too many %s (%d): %w", what, n, err))
		return
	}
	e.u2(v)
}

func (e *encoder) utf8(s string) {
	idx, err := e.pool.utf8(s)
	e.fail(err)
	e.u2(idx)
}

func (e *encoder) class(name string) {
	idx, err := e.pool.class(name)
	e.fail(err)
	e.u2(idx)
}

// attribute writes name, a u4 length and the body produced by fn.
func (e *encoder) attribute(name string, fn func(body *encoder)) {
	e.utf8(name)
	body := &encoder{pool: e.pool}
	fn(body)
	e.fail(body.err)
	n, err := safecast.Conv[uint32](len(body.out))
	if err != nil {
		e.fail(fmt.Errorf("attribute %s: %w", name, err))
		return
	}
	e.out = binary.BigEndian.AppendUint32(e.out, n)
	e.out = append(e.out, body.out...)
}

// attributes writes an attributes table from a list of optional writers.
func (e *encoder) attributes(attrs []namedAttr) {
	e.count(len(attrs), "attributes")
	for _, a := range attrs {
		e.attribute(a.name, a.body)
	}
}

type namedAttr struct {
	name string
	body func(*encoder)
}

// Encode serialises cls. Bodies must come from an Assembler.
func Encode(cls *Class) ([]byte, error) {
	e := &encoder{pool: newWritePool()}

	e.u2(cls.Access)
	e.class(cls.Name)
	if cls.SuperName == "" {
		e.u2(0)
	} else {
		e.class(cls.SuperName)
	}
	e.count(len(cls.Interfaces), "interfaces")
	for _, itf := range cls.Interfaces {
		e.class(itf)
	}

	e.count(len(cls.Fields), "fields")
	for _, f := range cls.Fields {
		e.field(f)
	}
	e.count(len(cls.Methods), "methods")
	for _, m := range cls.Methods {
		e.method(m)
	}

	var attrs []namedAttr
	if cls.Signature != "" {
		attrs = append(attrs, signatureAttr(cls.Signature))
	}
	if em := cls.EnclosingMethod; em != nil {
		attrs = append(attrs, namedAttr{"EnclosingMethod", func(b *encoder) {
			b.class(em.Owner)
			if em.MethodName == "" {
				b.u2(0)
				return
			}
			idx, err := b.pool.nameAndType(em.MethodName, em.MethodDesc)
			b.fail(err)
			b.u2(idx)
		}})
	}
	attrs = append(attrs, annotationAttrs(cls.Annotations)...)
	if len(cls.InnerClasses) > 0 {
		attrs = append(attrs, namedAttr{"InnerClasses", func(b *encoder) {
			b.count(len(cls.InnerClasses), "inner classes")
			for _, ic := range cls.InnerClasses {
				b.class(ic.Name)
				b.optClass(ic.OuterName)
				b.optUTF8(ic.InnerName)
				b.u2(ic.Access)
			}
		}})
	}
	e.attributes(attrs)

	if e.err != nil {
		return nil, fmt.Errorf("encode %s: %w", cls.Name, e.err)
	}

	poolCount, err := safecast.Conv[uint16](e.pool.count)
	if err != nil {
		return nil, fmt.Errorf("encode %s: constant pool: %w", cls.Name, err)
	}
	major := cls.MajorVersion
	if major == 0 {
		major = MajorJava8
	}
	head := make([]byte, 0, 10+len(e.pool.buf)+len(e.out))
	head = binary.BigEndian.AppendUint32(head, Magic)
	head = binary.BigEndian.AppendUint16(head, cls.MinorVersion)
	head = binary.BigEndian.AppendUint16(head, major)
	head = binary.BigEndian.AppendUint16(head, poolCount)
	head = append(head, e.pool.buf...)
	return append(head, e.out...), nil
}

func (e *encoder) optClass(name string) {
	if name == "" {
		e.u2(0)
		return
	}
	e.class(name)
}

func (e *encoder) optUTF8(s string) {
	if s == "" {
		e.u2(0)
		return
	}
	e.utf8(s)
}

func signatureAttr(sig string) namedAttr {
	return namedAttr{"Signature", func(b *encoder) { b.utf8(sig) }}
}

func (e *encoder) field(f *Field) {
	e.u2(f.Access)
	e.utf8(f.Name)
	e.utf8(f.Desc)

	var attrs []namedAttr
	if f.Value != nil {
		attrs = append(attrs, namedAttr{"ConstantValue", func(b *encoder) {
			idx, err := b.pool.constant(f.Value)
			if err != nil {
				b.fail(fmt.Errorf("field %s: %w", f.Name, err))
			}
			b.u2(idx)
		}})
	}
	if f.Signature != "" {
		attrs = append(attrs, signatureAttr(f.Signature))
	}
	attrs = append(attrs, annotationAttrs(f.Annotations)...)
	e.attributes(attrs)
}

func (e *encoder) method(m *Method) {
	e.u2(m.Access)
	e.utf8(m.Name)
	e.utf8(m.Desc)

	var attrs []namedAttr
	if m.Code != nil {
		code := m.Code
		if code.Insns == nil && code.Raw != nil {
			e.fail(fmt.Errorf("method %s%s: %w", m.Name, m.Desc, ErrRawCode))
		}
		attrs = append(attrs, namedAttr{"Code", func(b *encoder) {
			bytecode, err := assemble(code.Insns, b.pool)
			if err != nil {
				b.fail(fmt.Errorf("method %s%s: %w", m.Name, m.Desc, err))
				return
			}
			n, err := safecast.Conv[uint32](len(bytecode))
			if err != nil {
				b.fail(err)
				return
			}
			b.u2(code.MaxStack)
			b.u2(code.MaxLocals)
			b.out = binary.BigEndian.AppendUint32(b.out, n)
			b.out = append(b.out, bytecode...)
			b.u2(0) // exception table
			b.u2(0) // attributes
		}})
	}
	if len(m.Exceptions) > 0 {
		attrs = append(attrs, namedAttr{"Exceptions", func(b *encoder) {
			b.count(len(m.Exceptions), "exceptions")
			for _, exc := range m.Exceptions {
				b.class(exc)
			}
		}})
	}
	if m.Signature != "" {
		attrs = append(attrs, signatureAttr(m.Signature))
	}
	attrs = append(attrs, annotationAttrs(m.Annotations)...)
	attrs = append(attrs, parameterAnnotationAttrs(m.ParameterAnnotations)...)
	if m.AnnotationDefault != nil {
		def := *m.AnnotationDefault
		attrs = append(attrs, namedAttr{"AnnotationDefault", func(b *encoder) { b.elementValue(def) }})
	}
	if len(m.Parameters) > 0 {
		attrs = append(attrs, namedAttr{"MethodParameters", func(b *encoder) {
			n, err := safecast.Conv[uint8](len(m.Parameters))
			if err != nil {
				b.fail(fmt.Errorf("method %s%s: too many parameters: %w", m.Name, m.Desc, err))
				return
			}
			b.u1(n)
			for _, p := range m.Parameters {
				b.optUTF8(p.Name)
				b.u2(p.Access)
			}
		}})
	}
	e.attributes(attrs)
}

func splitVisible(anns []Annotation) (visible, invisible []Annotation) {
	for _, a := range anns {
		if a.Visible {
			visible = append(visible, a)
		} else {
			invisible = append(invisible, a)
		}
	}
	return visible, invisible
}

func annotationAttrs(anns []Annotation) []namedAttr {
	visible, invisible := splitVisible(anns)
	var attrs []namedAttr
	if len(visible) > 0 {
		attrs = append(attrs, namedAttr{"RuntimeVisibleAnnotations", func(b *encoder) { b.annotations(visible) }})
	}
	if len(invisible) > 0 {
		attrs = append(attrs, namedAttr{"RuntimeInvisibleAnnotations", func(b *encoder) { b.annotations(invisible) }})
	}
	return attrs
}

func parameterAnnotationAttrs(params [][]Annotation) []namedAttr {
	if len(params) == 0 {
		return nil
	}
	visible := make([][]Annotation, len(params))
	invisible := make([][]Annotation, len(params))
	var anyVisible, anyInvisible bool
	for i, anns := range params {
		visible[i], invisible[i] = splitVisible(anns)
		anyVisible = anyVisible || len(visible[i]) > 0
		anyInvisible = anyInvisible || len(invisible[i]) > 0
	}
	write := func(table [][]Annotation) func(*encoder) {
		return func(b *encoder) {
			n, err := safecast.Conv[uint8](len(table))
			if err != nil {
				b.fail(fmt.Errorf("parameter annotations: %w", err))
				return
			}
			b.u1(n)
			for _, anns := range table {
				b.annotations(anns)
			}
		}
	}
	var attrs []namedAttr
	if anyVisible {
		attrs = append(attrs, namedAttr{"RuntimeVisibleParameterAnnotations", write(visible)})
	}
	if anyInvisible {
		attrs = append(attrs, namedAttr{"RuntimeInvisibleParameterAnnotations", write(invisible)})
	}
	return attrs
}

func (e *encoder) annotations(anns []Annotation) {
	e.count(len(anns), "annotations")
	for i := range anns {
		e.annotation(&anns[i])
	}
}

func (e *encoder) annotation(a *Annotation) {
	e.utf8(a.Type)
	e.count(len(a.Elements), "annotation elements")
	for _, el := range a.Elements {
		e.utf8(el.Name)
		e.elementValue(el.Value)
	}
}

func (e *encoder) elementValue(v ElementValue) {
	e.u1(v.Tag)
	switch v.Tag {
	case TagByte, TagChar, TagInt, TagShort, TagBoolean:
		i, ok := v.Const.(int32)
		if !ok {
			e.fail(fmt.Errorf("element value %q: want int32, got %T", v.Tag, v.Const))
			return
		}
		idx, err := e.pool.integer(i)
		e.fail(err)
		e.u2(idx)
	case TagLong, TagFloat, TagDouble:
		idx, err := e.pool.constant(v.Const)
		e.fail(err)
		e.u2(idx)
	case TagString:
		s, ok := v.Const.(string)
		if !ok {
			e.fail(fmt.Errorf("element value 's': want string, got %T", v.Const))
			return
		}
		e.utf8(s)
	case TagEnum:
		e.utf8(v.EnumType)
		e.utf8(v.EnumName)
	case TagClass:
		e.utf8(v.Class)
	case TagAnnotation:
		if v.Annotation == nil {
			e.fail(fmt.Errorf("element value '@' without annotation"))
			return
		}
		e.annotation(v.Annotation)
	case TagArray:
		e.count(len(v.Array), "array elements")
		for _, el := range v.Array {
			e.elementValue(el)
		}
	default:
		e.fail(fmt.Errorf("unknown element value tag %q", v.Tag))
	}
}
