package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FormatError reports a malformed class file.
type FormatError struct {
	Offset  int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed class file at offset %d: %s", e.Offset, e.Message)
}

// cursor reads big-endian values and remembers the first failure so that
// callers can check once per structure.
type cursor struct {
	b   []byte
	off int
	err error
}

func (c *cursor) fail(format string, args ...any) {
	if c.err == nil {
		c.err = &FormatError{Offset: c.off, Message: fmt.Sprintf(format, args...)}
	}
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n > len(c.b) {
		c.fail("unexpected end of data (need %d bytes)", n)
		return nil
	}
	out := c.b[c.off : c.off+n]
	c.off += n
	return out
}

func (c *cursor) u1() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u2() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (c *cursor) u4() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// wrap attaches a pool resolution error to the current offset.
func (c *cursor) wrap(err error) {
	if err != nil {
		c.fail("%v", err)
	}
}

// Decode parses a class file.
func Decode(data []byte) (*Class, error) {
	c := &cursor{b: data}
	if magic := c.u4(); c.err == nil && magic != Magic {
		return nil, &FormatError{Offset: 0, Message: fmt.Sprintf("bad magic 0x%08x", magic)}
	}
	cls := &Class{}
	cls.MinorVersion = c.u2()
	cls.MajorVersion = c.u2()

	pool := decodePool(c)
	if c.err != nil {
		return nil, c.err
	}

	cls.Access = c.u2()
	var err error
	cls.Name, err = pool.class(c.u2())
	c.wrap(err)
	cls.SuperName, err = pool.optClass(c.u2())
	c.wrap(err)

	n := int(c.u2())
	for i := 0; i < n && c.err == nil; i++ {
		name, err := pool.class(c.u2())
		c.wrap(err)
		cls.Interfaces = append(cls.Interfaces, name)
	}

	n = int(c.u2())
	for i := 0; i < n && c.err == nil; i++ {
		cls.Fields = append(cls.Fields, decodeField(c, pool))
	}
	n = int(c.u2())
	for i := 0; i < n && c.err == nil; i++ {
		cls.Methods = append(cls.Methods, decodeMethod(c, pool))
	}

	decodeAttributes(c, pool, func(name string, body *cursor) {
		switch name {
		case "Signature":
			cls.Signature, err = pool.utf8(body.u2())
			body.wrap(err)
		case "RuntimeVisibleAnnotations":
			cls.Annotations = append(cls.Annotations, decodeAnnotations(body, pool, true)...)
		case "RuntimeInvisibleAnnotations":
			cls.Annotations = append(cls.Annotations, decodeAnnotations(body, pool, false)...)
		case "InnerClasses":
			cls.InnerClasses = decodeInnerClasses(body, pool)
		case "EnclosingMethod":
			cls.EnclosingMethod = decodeEnclosingMethod(body, pool)
		}
	})
	if c.err != nil {
		return nil, c.err
	}
	if c.off != len(data) {
		return nil, &FormatError{Offset: c.off, Message: fmt.Sprintf("%d trailing bytes", len(data)-c.off)}
	}
	return cls, nil
}

func decodePool(c *cursor) *readPool {
	count := int(c.u2())
	if count == 0 {
		c.fail("constant_pool_count is zero")
		return nil
	}
	p := &readPool{entries: make([]readEntry, count)}
	for i := 1; i < count && c.err == nil; i++ {
		e := &p.entries[i]
		e.tag = c.u1()
		switch e.tag {
		case tagUtf8:
			raw := c.take(int(c.u2()))
			if c.err != nil {
				break
			}
			s, err := decodeMUTF8(raw)
			if err != nil {
				c.fail("constant %d: %v", i, err)
			}
			e.str = s
		case tagInteger:
			e.num = int32(c.u4())
		case tagFloat:
			e.num = math.Float32frombits(c.u4())
		case tagLong:
			hi, lo := c.u4(), c.u4()
			e.num = int64(uint64(hi)<<32 | uint64(lo))
			i++
		case tagDouble:
			hi, lo := c.u4(), c.u4()
			e.num = math.Float64frombits(uint64(hi)<<32 | uint64(lo))
			i++
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.a = c.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			e.a = c.u2()
			e.b = c.u2()
		case tagMethodHandle:
			e.a = uint16(c.u1())
			e.b = c.u2()
		default:
			c.fail("constant %d: unknown tag %d", i, e.tag)
		}
	}
	return p
}

// decodeAttributes walks an attributes table, handing each attribute body
// to fn as a sub-cursor. Bodies fn leaves partially read are fine; bodies
// it overreads are reported.
func decodeAttributes(c *cursor, pool *readPool, fn func(name string, body *cursor)) {
	n := int(c.u2())
	for i := 0; i < n && c.err == nil; i++ {
		name, err := pool.utf8(c.u2())
		c.wrap(err)
		length := c.u4()
		if length > math.MaxInt32 {
			c.fail("attribute %q too long", name)
			return
		}
		start := c.off
		raw := c.take(int(length))
		if c.err != nil {
			return
		}
		body := &cursor{b: raw}
		fn(name, body)
		if body.err != nil {
			if fe, ok := body.err.(*FormatError); ok {
				c.err = &FormatError{Offset: start + fe.Offset, Message: fmt.Sprintf("attribute %s: %s", name, fe.Message)}
			} else {
				c.err = body.err
			}
			return
		}
	}
}

func decodeField(c *cursor, pool *readPool) *Field {
	f := &Field{Access: c.u2()}
	var err error
	f.Name, err = pool.utf8(c.u2())
	c.wrap(err)
	f.Desc, err = pool.utf8(c.u2())
	c.wrap(err)
	decodeAttributes(c, pool, func(name string, body *cursor) {
		switch name {
		case "ConstantValue":
			f.Value, err = pool.constant(body.u2())
			body.wrap(err)
		case "Signature":
			f.Signature, err = pool.utf8(body.u2())
			body.wrap(err)
		case "RuntimeVisibleAnnotations":
			f.Annotations = append(f.Annotations, decodeAnnotations(body, pool, true)...)
		case "RuntimeInvisibleAnnotations":
			f.Annotations = append(f.Annotations, decodeAnnotations(body, pool, false)...)
		}
	})
	return f
}

func decodeMethod(c *cursor, pool *readPool) *Method {
	m := &Method{Access: c.u2()}
	var err error
	m.Name, err = pool.utf8(c.u2())
	c.wrap(err)
	m.Desc, err = pool.utf8(c.u2())
	c.wrap(err)
	decodeAttributes(c, pool, func(name string, body *cursor) {
		switch name {
		case "Code":
			m.Code = decodeCode(body, pool)
		case "Exceptions":
			n := int(body.u2())
			for i := 0; i < n && body.err == nil; i++ {
				exc, err := pool.class(body.u2())
				body.wrap(err)
				m.Exceptions = append(m.Exceptions, exc)
			}
		case "Signature":
			m.Signature, err = pool.utf8(body.u2())
			body.wrap(err)
		case "RuntimeVisibleAnnotations":
			m.Annotations = append(m.Annotations, decodeAnnotations(body, pool, true)...)
		case "RuntimeInvisibleAnnotations":
			m.Annotations = append(m.Annotations, decodeAnnotations(body, pool, false)...)
		case "RuntimeVisibleParameterAnnotations":
			m.ParameterAnnotations = mergeParameterAnnotations(m.ParameterAnnotations, decodeParameterAnnotations(body, pool, true))
		case "RuntimeInvisibleParameterAnnotations":
			m.ParameterAnnotations = mergeParameterAnnotations(m.ParameterAnnotations, decodeParameterAnnotations(body, pool, false))
		case "AnnotationDefault":
			v := decodeElementValue(body, pool)
			m.AnnotationDefault = &v
		case "MethodParameters":
			n := int(body.u1())
			for i := 0; i < n && body.err == nil; i++ {
				pname, err := pool.optUTF8(body.u2())
				body.wrap(err)
				m.Parameters = append(m.Parameters, MethodParameter{Name: pname, Access: body.u2()})
			}
		}
	})
	return m
}

func decodeCode(c *cursor, pool *readPool) *Code {
	code := &Code{MaxStack: c.u2(), MaxLocals: c.u2(), pool: pool}
	length := c.u4()
	if length > math.MaxInt32 {
		c.fail("code too long")
		return code
	}
	code.Raw = c.take(int(length))
	// exception table, then nested attributes (LineNumberTable etc.) are
	// not needed.
	return code
}

func decodeInnerClasses(c *cursor, pool *readPool) []InnerClass {
	n := int(c.u2())
	out := make([]InnerClass, 0, n)
	for i := 0; i < n && c.err == nil; i++ {
		var ic InnerClass
		var err error
		ic.Name, err = pool.class(c.u2())
		c.wrap(err)
		ic.OuterName, err = pool.optClass(c.u2())
		c.wrap(err)
		ic.InnerName, err = pool.optUTF8(c.u2())
		c.wrap(err)
		ic.Access = c.u2()
		out = append(out, ic)
	}
	return out
}

func decodeEnclosingMethod(c *cursor, pool *readPool) *EnclosingMethod {
	em := &EnclosingMethod{}
	var err error
	em.Owner, err = pool.class(c.u2())
	c.wrap(err)
	if nt := c.u2(); nt != 0 && c.err == nil {
		em.MethodName, em.MethodDesc, err = pool.nameAndType(nt)
		c.wrap(err)
	}
	return em
}

func decodeAnnotations(c *cursor, pool *readPool, visible bool) []Annotation {
	n := int(c.u2())
	out := make([]Annotation, 0, n)
	for i := 0; i < n && c.err == nil; i++ {
		out = append(out, decodeAnnotation(c, pool, visible))
	}
	return out
}

func decodeParameterAnnotations(c *cursor, pool *readPool, visible bool) [][]Annotation {
	n := int(c.u1())
	out := make([][]Annotation, n)
	for i := 0; i < n && c.err == nil; i++ {
		out[i] = decodeAnnotations(c, pool, visible)
	}
	return out
}

func mergeParameterAnnotations(dst, src [][]Annotation) [][]Annotation {
	for len(dst) < len(src) {
		dst = append(dst, nil)
	}
	for i, anns := range src {
		dst[i] = append(dst[i], anns...)
	}
	return dst
}

func decodeAnnotation(c *cursor, pool *readPool, visible bool) Annotation {
	a := Annotation{Visible: visible}
	var err error
	a.Type, err = pool.utf8(c.u2())
	c.wrap(err)
	n := int(c.u2())
	for i := 0; i < n && c.err == nil; i++ {
		name, err := pool.utf8(c.u2())
		c.wrap(err)
		a.Elements = append(a.Elements, Element{Name: name, Value: decodeElementValue(c, pool)})
	}
	return a
}

func decodeElementValue(c *cursor, pool *readPool) ElementValue {
	v := ElementValue{Tag: c.u1()}
	var err error
	switch v.Tag {
	case TagByte, TagChar, TagInt, TagShort, TagBoolean:
		v.Const, err = pool.integer(c.u2())
	case TagLong, TagFloat, TagDouble:
		v.Const, err = pool.constant(c.u2())
	case TagString:
		v.Const, err = pool.utf8(c.u2())
	case TagEnum:
		if v.EnumType, err = pool.utf8(c.u2()); err == nil {
			v.EnumName, err = pool.utf8(c.u2())
		}
	case TagClass:
		v.Class, err = pool.utf8(c.u2())
	case TagAnnotation:
		nested := decodeAnnotation(c, pool, true)
		v.Annotation = &nested
	case TagArray:
		n := int(c.u2())
		v.Array = make([]ElementValue, 0, n)
		for i := 0; i < n && c.err == nil; i++ {
			v.Array = append(v.Array, decodeElementValue(c, pool))
		}
	default:
		if c.err == nil {
			c.fail("unknown element value tag %q", v.Tag)
		}
	}
	c.wrap(err)
	return v
}
