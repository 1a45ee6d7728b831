package classfile

// Access flags shared by classes, fields, methods, inner classes and
// method parameters. Several values are reused with a different meaning
// depending on where they appear (e.g. 0x0020 is ACC_SUPER on a class and
// ACC_SYNCHRONIZED on a method).
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020
	AccSynchronized uint16 = 0x0020
	AccVolatile     uint16 = 0x0040
	AccBridge       uint16 = 0x0040
	AccTransient    uint16 = 0x0080
	AccVarargs      uint16 = 0x0080
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccStrict       uint16 = 0x0800
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
	AccMandated     uint16 = 0x8000
	AccModule       uint16 = 0x8000
)

// VisibilityMask covers the bits that encode visibility.
const VisibilityMask = AccPublic | AccPrivate | AccProtected

// HasFlag reports whether all bits of flag are set in access.
func HasFlag(access, flag uint16) bool {
	return access&flag == flag
}

// NoFlag reports whether none of the bits of flag are set in access.
func NoFlag(access, flag uint16) bool {
	return access&flag == 0
}

// Class file versions.
const (
	MajorJava8  uint16 = 52
	MajorJava11 uint16 = 55
	MajorJava17 uint16 = 61
)

// Magic is the leading u4 of every class file.
const Magic uint32 = 0xCAFEBABE

// ObjectClass is the implicit supertype of every class but itself.
const ObjectClass = "java/lang/Object"
