package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"xritd/internal/xrit"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Record encodes one header record with its type and big-endian length.
func Record(typ byte, payload []byte) []byte {
	out := make([]byte, 3+len(payload))
	out[0] = typ
	binary.BigEndian.PutUint16(out[1:3], uint16(len(out)))
	copy(out[3:], payload)
	return out
}

// Segment describes a synthetic transport file. Zero values produce a GOES-16
// full disk visible segment 1 of 1 with a 4x2 uncompressed image.
type Segment struct {
	ProductID    uint16
	SubProductID uint16
	Sequence     uint16
	MaxSegment   uint16
	Columns      uint16
	Lines        uint16
	Time         time.Time
	Name         string
	Projection   string
	Compressed   bool
	Data         []byte
	NoAnnotation bool
	Trailer      bool
}

// DefaultSegmentTime is the frame time used when Segment.Time is zero.
var DefaultSegmentTime = time.Date(2026, time.March, 14, 15, 30, 0, 0, time.UTC)

func (s Segment) withDefaults() Segment {
	if s.ProductID == 0 {
		s.ProductID = 16
	}
	if s.SubProductID == 0 {
		s.SubProductID = 11
	}
	if s.MaxSegment == 0 {
		s.MaxSegment = 1
	}
	if s.Columns == 0 {
		s.Columns = 4
	}
	if s.Lines == 0 {
		s.Lines = 2
	}
	if s.Time.IsZero() {
		s.Time = DefaultSegmentTime
	}
	if s.Projection == "" {
		s.Projection = "GEOS(-075.0)"
	}
	if s.Data == nil {
		s.Data = make([]byte, int(s.Columns)*int(s.Lines))
		for i := range s.Data {
			s.Data[i] = byte(int(s.Sequence)*16 + i)
		}
	}
	return s
}

// Bytes encodes the segment as a transport file.
func (s Segment) Bytes() []byte {
	s = s.withDefaults()

	compression := byte(0)
	if s.Compressed {
		compression = 1
	}

	image := make([]byte, 6)
	image[0] = 8
	binary.BigEndian.PutUint16(image[1:3], s.Columns)
	binary.BigEndian.PutUint16(image[3:5], s.Lines)
	image[5] = compression

	nav := make([]byte, 48)
	copy(nav[:32], s.Projection)
	cfac, lfac := int32(20466275), int32(-20466275)
	binary.BigEndian.PutUint32(nav[32:36], uint32(cfac))
	binary.BigEndian.PutUint32(nav[36:40], uint32(lfac))
	binary.BigEndian.PutUint32(nav[40:44], uint32(int32(s.Columns/2)))
	binary.BigEndian.PutUint32(nav[44:48], uint32(int32(s.Lines/2)))

	epoch := time.Date(1958, time.January, 1, 0, 0, 0, 0, time.UTC)
	ts := s.Time.UTC()
	days := ts.Sub(epoch) / (24 * time.Hour)
	dayStart := epoch.Add(days * 24 * time.Hour)
	stamp := make([]byte, 7)
	stamp[0] = 0x40
	binary.BigEndian.PutUint16(stamp[1:3], uint16(days))
	binary.BigEndian.PutUint32(stamp[3:7], uint32(ts.Sub(dayStart)/time.Millisecond))

	seg := make([]byte, 14)
	binary.BigEndian.PutUint16(seg[0:2], 1)
	binary.BigEndian.PutUint16(seg[2:4], s.Sequence)
	binary.BigEndian.PutUint16(seg[6:8], s.Sequence*s.Lines)
	binary.BigEndian.PutUint16(seg[8:10], s.MaxSegment)
	binary.BigEndian.PutUint16(seg[10:12], s.Columns)
	binary.BigEndian.PutUint16(seg[12:14], s.Lines*s.MaxSegment)

	noaa := make([]byte, 11)
	copy(noaa[0:4], "NOAA")
	binary.BigEndian.PutUint16(noaa[4:6], s.ProductID)
	binary.BigEndian.PutUint16(noaa[6:8], s.SubProductID)
	noaa[10] = compression

	records := [][]byte{
		Record(xrit.RecordImage, image),
		Record(xrit.RecordNavigation, nav),
	}
	if !s.NoAnnotation {
		records = append(records, Record(xrit.RecordAnnotation, []byte(s.Name)))
	}
	records = append(records,
		Record(xrit.RecordTimestamp, stamp),
		Record(xrit.RecordSegment, seg),
		Record(xrit.RecordProduct, noaa),
	)

	headerLength := xrit.PrimaryHeaderLength
	for _, rec := range records {
		headerLength += len(rec)
	}
	primary := make([]byte, 13)
	binary.BigEndian.PutUint32(primary[1:5], uint32(headerLength))
	binary.BigEndian.PutUint64(primary[5:13], uint64(len(s.Data))*8)

	out := Record(xrit.RecordPrimary, primary)
	for _, rec := range records {
		out = append(out, rec...)
	}
	out = append(out, s.Data...)
	if s.Trailer {
		out = binary.BigEndian.AppendUint16(out, xrit.CRC16(out))
	}
	return out
}

// WriteSegment writes a synthetic transport file named fileName into dir and
// returns its path.
func WriteSegment(t testing.TB, dir, fileName string, s Segment) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, s.Bytes(), 0o644); err != nil {
		t.Fatalf("write segment %s: %v", path, err)
	}
	return path
}
