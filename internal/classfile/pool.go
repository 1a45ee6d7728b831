package classfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"
)

// Constant pool tags.
const (
	tagUtf8               byte = 1
	tagInteger            byte = 3
	tagFloat              byte = 4
	tagLong               byte = 5
	tagDouble             byte = 6
	tagClass              byte = 7
	tagString             byte = 8
	tagFieldref           byte = 9
	tagMethodref          byte = 10
	tagInterfaceMethodref byte = 11
	tagNameAndType        byte = 12
	tagMethodHandle       byte = 15
	tagMethodType         byte = 16
	tagDynamic            byte = 17
	tagInvokeDynamic      byte = 18
	tagModule             byte = 19
	tagPackage            byte = 20
)

// maxPoolCount is the largest constant_pool_count a class file can declare.
const maxPoolCount = 0xFFFF

// writePool accumulates constant pool entries for Encode, deduplicating
// identical entries.
type writePool struct {
	buf   []byte
	count int // next index; slot 0 is reserved
	index map[string]uint16
}

func newWritePool() *writePool {
	return &writePool{count: 1, index: make(map[string]uint16)}
}

func (p *writePool) intern(key string, slots int, body func([]byte) []byte) (uint16, error) {
	if idx, ok := p.index[key]; ok {
		return idx, nil
	}
	if p.count+slots > maxPoolCount {
		return 0, fmt.Errorf("constant pool overflow: more than %d entries", maxPoolCount-1)
	}
	idx, err := safecast.Conv[uint16](p.count)
	if err != nil {
		return 0, fmt.Errorf("constant pool index: %w", err)
	}
	p.buf = body(p.buf)
	p.count += slots
	p.index[key] = idx
	return idx, nil
}

func (p *writePool) utf8(s string) (uint16, error) {
	enc, err := encodeMUTF8(s)
	if err != nil {
		return 0, err
	}
	return p.intern("U"+s, 1, func(b []byte) []byte {
		b = append(b, tagUtf8)
		b = binary.BigEndian.AppendUint16(b, uint16(len(enc)))
		return append(b, enc...)
	})
}

func (p *writePool) ref1(tag byte, prefix, s string) (uint16, error) {
	u, err := p.utf8(s)
	if err != nil {
		return 0, err
	}
	return p.intern(prefix+s, 1, func(b []byte) []byte {
		b = append(b, tag)
		return binary.BigEndian.AppendUint16(b, u)
	})
}

func (p *writePool) class(name string) (uint16, error) {
	return p.ref1(tagClass, "C", name)
}

func (p *writePool) string(s string) (uint16, error) {
	return p.ref1(tagString, "S", s)
}

func (p *writePool) integer(v int32) (uint16, error) {
	return p.intern(fmt.Sprintf("I%d", v), 1, func(b []byte) []byte {
		b = append(b, tagInteger)
		return binary.BigEndian.AppendUint32(b, uint32(v))
	})
}

func (p *writePool) float(v float32) (uint16, error) {
	bits := math.Float32bits(v)
	return p.intern(fmt.Sprintf("F%08x", bits), 1, func(b []byte) []byte {
		b = append(b, tagFloat)
		return binary.BigEndian.AppendUint32(b, bits)
	})
}

func (p *writePool) long(v int64) (uint16, error) {
	return p.intern(fmt.Sprintf("J%d", v), 2, func(b []byte) []byte {
		b = append(b, tagLong)
		return binary.BigEndian.AppendUint64(b, uint64(v))
	})
}

func (p *writePool) double(v float64) (uint16, error) {
	bits := math.Float64bits(v)
	return p.intern(fmt.Sprintf("D%016x", bits), 2, func(b []byte) []byte {
		b = append(b, tagDouble)
		return binary.BigEndian.AppendUint64(b, bits)
	})
}

func (p *writePool) nameAndType(name, desc string) (uint16, error) {
	n, err := p.utf8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.utf8(desc)
	if err != nil {
		return 0, err
	}
	return p.intern("N"+name+"\x00"+desc, 1, func(b []byte) []byte {
		b = append(b, tagNameAndType)
		b = binary.BigEndian.AppendUint16(b, n)
		return binary.BigEndian.AppendUint16(b, d)
	})
}

func (p *writePool) methodref(owner, name, desc string) (uint16, error) {
	c, err := p.class(owner)
	if err != nil {
		return 0, err
	}
	nt, err := p.nameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return p.intern("M"+owner+"\x00"+name+"\x00"+desc, 1, func(b []byte) []byte {
		b = append(b, tagMethodref)
		b = binary.BigEndian.AppendUint16(b, c)
		return binary.BigEndian.AppendUint16(b, nt)
	})
}

// constant interns a ConstantValue / element constant and returns its index.
func (p *writePool) constant(v any) (uint16, error) {
	switch val := v.(type) {
	case int32:
		return p.integer(val)
	case int64:
		return p.long(val)
	case float32:
		return p.float(val)
	case float64:
		return p.double(val)
	case string:
		return p.string(val)
	default:
		return 0, fmt.Errorf("unsupported constant value type %T", v)
	}
}

// readEntry is one resolved slot of a decoded constant pool.
type readEntry struct {
	tag  byte
	str  string // Utf8
	a, b uint16 // indices for reference entries
	num  any    // Integer, Float, Long, Double
}

// readPool is the constant pool of a decoded class file.
type readPool struct {
	entries []readEntry
}

func (p *readPool) entry(idx uint16, want byte) (*readEntry, error) {
	if idx == 0 || int(idx) >= len(p.entries) {
		return nil, fmt.Errorf("constant pool index %d out of range", idx)
	}
	e := &p.entries[idx]
	if want != 0 && e.tag != want {
		return nil, fmt.Errorf("constant pool index %d: tag %d, want %d", idx, e.tag, want)
	}
	return e, nil
}

func (p *readPool) utf8(idx uint16) (string, error) {
	e, err := p.entry(idx, tagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

// optUTF8 resolves idx, treating 0 as absent.
func (p *readPool) optUTF8(idx uint16) (string, error) {
	if idx == 0 {
		return "", nil
	}
	return p.utf8(idx)
}

func (p *readPool) class(idx uint16) (string, error) {
	e, err := p.entry(idx, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(e.a)
}

func (p *readPool) optClass(idx uint16) (string, error) {
	if idx == 0 {
		return "", nil
	}
	return p.class(idx)
}

func (p *readPool) nameAndType(idx uint16) (name, desc string, err error) {
	e, err := p.entry(idx, tagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.utf8(e.a); err != nil {
		return "", "", err
	}
	desc, err = p.utf8(e.b)
	return name, desc, err
}

func (p *readPool) memberRef(idx uint16) (owner, name, desc string, err error) {
	e, err := p.entry(idx, 0)
	if err != nil {
		return "", "", "", err
	}
	switch e.tag {
	case tagFieldref, tagMethodref, tagInterfaceMethodref:
	default:
		return "", "", "", fmt.Errorf("constant pool index %d: tag %d is not a member reference", idx, e.tag)
	}
	if owner, err = p.class(e.a); err != nil {
		return "", "", "", err
	}
	name, desc, err = p.nameAndType(e.b)
	return owner, name, desc, err
}

// constant resolves a loadable constant: numbers and strings.
func (p *readPool) constant(idx uint16) (any, error) {
	e, err := p.entry(idx, 0)
	if err != nil {
		return nil, err
	}
	switch e.tag {
	case tagInteger, tagFloat, tagLong, tagDouble:
		return e.num, nil
	case tagString:
		return p.utf8(e.a)
	case tagUtf8:
		return e.str, nil
	default:
		return nil, fmt.Errorf("constant pool index %d: tag %d is not a constant", idx, e.tag)
	}
}

func (p *readPool) integer(idx uint16) (int32, error) {
	e, err := p.entry(idx, tagInteger)
	if err != nil {
		return 0, err
	}
	return e.num.(int32), nil
}
