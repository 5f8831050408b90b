package xrit

// CRC16 computes the CRC-16/CCITT-FALSE checksum of data one byte at a time
// without a lookup table.
func CRC16(data []byte) uint16 {
	lsb, msb := byte(0xFF), byte(0xFF)
	for _, b := range data {
		x := b ^ msb
		x ^= x >> 4
		msb = lsb ^ (x >> 3) ^ (x << 4)
		lsb = x ^ (x << 5)
	}
	return uint16(msb)<<8 | uint16(lsb)
}
