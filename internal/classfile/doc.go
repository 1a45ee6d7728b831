// Package classfile reads and writes JVM class files.
//
// The model is symbolic: constant pool indices never leak out of this
// package. Decode resolves every reference into strings and typed values;
// Encode rebuilds a deduplicated constant pool from scratch.
//
// Only the attributes needed to describe an API shape are understood:
//   - ConstantValue, Signature, Exceptions, AnnotationDefault
//   - Runtime(In)VisibleAnnotations and Runtime(In)VisibleParameterAnnotations
//   - InnerClasses, EnclosingMethod, MethodParameters
//   - Code (kept raw on decode, assembled symbolically on encode)
//
// Everything else is skipped on decode. Method bodies read from input files
// can be inspected with Code.Instructions but never re-encoded; the encoder
// only writes bodies built with an Assembler.
//
// Strings are stored in the pool as modified UTF-8 (see mutf8.go).
package classfile
