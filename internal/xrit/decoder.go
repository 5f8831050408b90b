package xrit

import "encoding/binary"

const (
	// MaxRecordHops bounds how many records a header walk examines.
	MaxRecordHops = 20
	// UnknownName is returned by ExtractFilename when no annotation record exists.
	UnknownName = "--"

	recordHeaderSize = 3
)

// Record type codes found in transport file headers.
const (
	RecordPrimary    byte = 0
	RecordImage      byte = 1
	RecordNavigation byte = 2
	RecordAnnotation byte = 4
	RecordTimestamp  byte = 5
	RecordSegment    byte = 128
	RecordProduct    byte = 129
)

// walk visits records from the start of buf until visit returns true, the
// buffer ends, a record cannot advance the cursor, or MaxRecordHops records
// have been examined. Each rec slice starts at the type byte and is clamped
// to the buffer, so it may be shorter than the declared length.
func walk(buf []byte, visit func(typ byte, rec []byte) bool) {
	pos := 0
	for hop := 0; hop < MaxRecordHops; hop++ {
		if len(buf)-pos < recordHeaderSize {
			return
		}
		typ := buf[pos]
		length := int(binary.BigEndian.Uint16(buf[pos+1 : pos+3]))
		end := min(pos+max(length, recordHeaderSize), len(buf))
		if visit(typ, buf[pos:end]) {
			return
		}
		if length < recordHeaderSize {
			return
		}
		pos += length
	}
}

// ExtractFilename returns the annotation record text, or UnknownName when the
// header carries none.
func ExtractFilename(buf []byte) string {
	name := UnknownName
	walk(buf, func(typ byte, rec []byte) bool {
		if typ != RecordAnnotation {
			return false
		}
		name = string(rec[recordHeaderSize:])
		return true
	})
	return name
}

// IsCompressed reports the compression flag of the first product (type 129)
// or image structure (type 1) record in the header.
func IsCompressed(buf []byte) bool {
	compressed := false
	walk(buf, func(typ byte, rec []byte) bool {
		switch typ {
		case RecordProduct:
			compressed = len(rec) > 13 && rec[13] != 0
			return true
		case RecordImage:
			compressed = len(rec) > 5 && rec[5] != 0
			return true
		}
		return false
	})
	return compressed
}

// PixelCount returns the column count of the image structure record, or 0.
func PixelCount(buf []byte) uint16 {
	var pixels uint16
	walk(buf, func(typ byte, rec []byte) bool {
		if typ != RecordImage {
			return false
		}
		if len(rec) >= 6 {
			pixels = binary.BigEndian.Uint16(rec[4:6])
		}
		return true
	})
	return pixels
}
