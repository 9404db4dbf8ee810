// Package heap stores variable-length payloads in global heap collections
// ("GCOL") inside the library's byte image.
//
// A stored VL element is a 4-byte length followed by an [ID]: the
// collection address (offset-sized) and a 4-byte object index. The zero ID
// is the null reference, used for empty sequences and for strings that
// were never written.
//
// Objects are written in batches with a [Writer]: [Writer.Add] queues a
// payload, [Writer.Flush] lays out collections of at most [MaxObjects]
// objects, each padded to 8 bytes, and returns the IDs in add order.
//
//	hw := store.NewWriter()
//	slot := hw.Add(payload)
//	ids, err := hw.Flush()
//	data, err := store.Get(ids[slot])
package heap
