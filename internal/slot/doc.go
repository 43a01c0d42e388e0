// Package slot implements the cache's fixed arena of block slots and the
// index from block address to occupied slot.
//
// A [Pool] is built once over pre-allocated buffers. Slots never move and are
// never allocated again; they cycle between the free list and occupation
// (indexed by a block address). The index is a chained hash table whose
// chains are threaded through the slots themselves, with a power-of-two
// bucket count derived from the slot count by [Buckets].
//
// The Pool is not safe for concurrent use.
package slot
