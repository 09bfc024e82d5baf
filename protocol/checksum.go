package protocol

// Checksum computes the 8-bit packet checksum: the 2's complement of the byte sum,
// so that the sum of data plus checksum is zero modulo 256.
//
// A byte sum of zero yields a checksum of 0.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	// Return 2's complement: invert and add 1
	return ^sum + 1
}

// VerifyChecksum reports whether the bytes of a complete packet sum to zero modulo 256.
func VerifyChecksum(packet []byte) bool {
	var sum byte
	for _, b := range packet {
		sum += b
	}
	return sum == 0
}
