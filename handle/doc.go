// Package handle implements reference counted memory handles.
//
// A handle is an individually allocated region addressed only through its
// integer id. Array kinds carry a raw byte prefix (the array header) followed
// by a special region of typed cells; byte granular access to the special
// region is translated into cell reads and writes of the native width.
//
// Reclamation of handles whose count drops to zero is left to the caller,
// which may poll Table.All() and release handles with Table.Free().
package handle
