// Package lists implements index-based membership lists for cache slots.
//
// Slots live in a fixed arena and are identified by their position in it.
// A [Manager] threads every slot onto at most one of a small, fixed set of
// doubly-linked lists using parallel prev/next arrays, so relinking never
// allocates and no slot holds a pointer to another.
//
// Lists keep insertion order: [Manager.MoveTo] appends to the back, so the
// front of a list is the entry that joined (or was last touched) earliest.
//
// The Manager is not safe for concurrent use.
package lists
