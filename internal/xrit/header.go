package xrit

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"xritd/internal/services"
)

// PrimaryHeaderLength is the fixed size of the type 0 record that opens
// every transport file.
const PrimaryHeaderLength = 16

// cdsEpoch is day zero of CCSDS day segmented time codes.
var cdsEpoch = time.Date(1958, time.January, 1, 0, 0, 0, 0, time.UTC)

// Image mirrors the image structure record.
type Image struct {
	BitsPerPixel uint8
	Columns      uint16
	Lines        uint16
	Compression  uint8
}

// Navigation mirrors the image navigation record.
type Navigation struct {
	Projection string
	CFAC       int32
	LFAC       int32
	COFF       int32
	LOFF       int32
}

// Longitude parses the sub-satellite longitude out of a projection name such
// as "GEOS(-075.0)".
func (n Navigation) Longitude() (float64, bool) {
	open := strings.IndexByte(n.Projection, '(')
	closing := strings.LastIndexByte(n.Projection, ')')
	if open < 0 || closing <= open+1 {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(n.Projection[open+1:closing]), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Segment mirrors the segment identification record.
type Segment struct {
	ImageID     uint16
	Sequence    uint16
	StartColumn uint16
	StartLine   uint16
	MaxSegment  uint16
	MaxColumn   uint16
	MaxRow      uint16
}

// Product mirrors the NOAA product specific record.
type Product struct {
	Agency       string
	ProductID    uint16
	SubProductID uint16
	Parameter    uint16
	Compression  uint8
}

// Header is the decoded header region of one transport file. The Has* flags
// report which optional records were present.
type Header struct {
	FileType     uint8
	HeaderLength uint32
	DataLength   uint64

	Image         Image
	HasImage      bool
	Navigation    Navigation
	HasNavigation bool
	Filename      string
	Time          time.Time
	HasTime       bool
	Segment       Segment
	HasSegment    bool
	Product       Product
	HasProduct    bool
}

// Compressed reports whether the data field is compressed according to the
// declared compression fields of the product and image structure records.
func (h Header) Compressed() bool {
	switch {
	case h.HasProduct && h.Product.Compression != 0:
		return true
	case h.HasImage:
		return h.Image.Compression != 0
	default:
		return false
	}
}

// ParseHeader decodes the known records of a header region. The buffer must
// open with a well-formed primary header; unknown or truncated records later
// in the region are skipped. Bytes past the declared header length are never
// interpreted as records.
func ParseHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < PrimaryHeaderLength {
		return h, services.Wrap(services.ErrValidation, "xrit", "parse header", "header shorter than primary record", nil)
	}
	if buf[0] != RecordPrimary || binary.BigEndian.Uint16(buf[1:3]) != PrimaryHeaderLength {
		return h, services.Wrap(services.ErrValidation, "xrit", "parse header", "missing primary header record", nil)
	}
	h.FileType = buf[3]
	h.HeaderLength = binary.BigEndian.Uint32(buf[4:8])
	h.DataLength = binary.BigEndian.Uint64(buf[8:16])
	h.Filename = UnknownName
	if h.HeaderLength >= PrimaryHeaderLength && uint64(h.HeaderLength) <= uint64(len(buf)) {
		buf = buf[:h.HeaderLength]
	}

	walk(buf, func(typ byte, rec []byte) bool {
		switch typ {
		case RecordImage:
			if len(rec) >= 9 {
				h.Image = Image{
					BitsPerPixel: rec[3],
					Columns:      binary.BigEndian.Uint16(rec[4:6]),
					Lines:        binary.BigEndian.Uint16(rec[6:8]),
					Compression:  rec[8],
				}
				h.HasImage = true
			}
		case RecordNavigation:
			if len(rec) >= 51 {
				h.Navigation = Navigation{
					Projection: strings.TrimRight(string(rec[3:35]), "\x00 "),
					CFAC:       int32(binary.BigEndian.Uint32(rec[35:39])),
					LFAC:       int32(binary.BigEndian.Uint32(rec[39:43])),
					COFF:       int32(binary.BigEndian.Uint32(rec[43:47])),
					LOFF:       int32(binary.BigEndian.Uint32(rec[47:51])),
				}
				h.HasNavigation = true
			}
		case RecordAnnotation:
			if !h.hasFilename() {
				h.Filename = string(rec[recordHeaderSize:])
			}
		case RecordTimestamp:
			if len(rec) >= 10 {
				days := binary.BigEndian.Uint16(rec[4:6])
				millis := binary.BigEndian.Uint32(rec[6:10])
				h.Time = cdsEpoch.AddDate(0, 0, int(days)).Add(time.Duration(millis) * time.Millisecond)
				h.HasTime = true
			}
		case RecordSegment:
			if len(rec) >= 17 {
				h.Segment = Segment{
					ImageID:     binary.BigEndian.Uint16(rec[3:5]),
					Sequence:    binary.BigEndian.Uint16(rec[5:7]),
					StartColumn: binary.BigEndian.Uint16(rec[7:9]),
					StartLine:   binary.BigEndian.Uint16(rec[9:11]),
					MaxSegment:  binary.BigEndian.Uint16(rec[11:13]),
					MaxColumn:   binary.BigEndian.Uint16(rec[13:15]),
					MaxRow:      binary.BigEndian.Uint16(rec[15:17]),
				}
				h.HasSegment = true
			}
		case RecordProduct:
			if len(rec) >= 14 {
				h.Product = Product{
					Agency:       strings.TrimRight(string(rec[3:7]), "\x00 "),
					ProductID:    binary.BigEndian.Uint16(rec[7:9]),
					SubProductID: binary.BigEndian.Uint16(rec[9:11]),
					Parameter:    binary.BigEndian.Uint16(rec[11:13]),
					Compression:  rec[13],
				}
				h.HasProduct = true
			}
		}
		return false
	})
	return h, nil
}

func (h Header) hasFilename() bool {
	return h.Filename != UnknownName
}
