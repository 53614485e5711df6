// Package memory defines the byte addressable memory used by the native CPU.
//
// Every access is bounds checked against the size of the region, and all
// multi-byte values use big-endian byte order. Plain loads and stores are not
// synchronized; the caller orders any shared access that requires visibility.
package memory
