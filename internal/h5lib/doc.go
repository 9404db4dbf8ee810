// Package h5lib is an in-process implementation of the native library the
// marshalling core talks to.
//
// It owns a handle table (datatypes, dataspaces, attributes, datasets) and
// keeps objects in a byte image: metadata as serialized datatype, dataspace
// and attribute messages, elements in packed storage layout with VL
// payloads in global heap collections.
//
// Reads and writes take a memory type handle and a buffer in native
// memory. On read the library allocates every VL payload and string on the
// native heap and stores their pointers in the buffer; those blocks belong
// to the caller until [Library.Reclaim] frees them. Strings that were never
// written come back as NULL pointers. On write the library only copies out
// of native memory.
package h5lib
