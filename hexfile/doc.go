// Package hexfile reads and writes firmware images in Intel HEX format.
//
// Addresses in the file are image byte addresses. For 24-bit instruction targets
// every instruction occupies four bytes, the last one being a phantom byte.
package hexfile
