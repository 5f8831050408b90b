package product

import (
	"fmt"
	"time"
)

// GroupKey identifies one observation window: product id in bits 47-62,
// region code in the next 8, and the frame time bucket in the low 39. The
// sign bit stays clear.
type GroupKey int64

const (
	bucketBits  = 39
	bucketMask  = 1<<bucketBits - 1
	productBits = bucketBits + 8
)

// NewGroupKey composes a key. bucket is the bucket width and must be positive.
func NewGroupKey(productID uint16, region uint8, frame time.Time, bucket time.Duration) GroupKey {
	width := int64(bucket / time.Second)
	if width <= 0 {
		width = 1
	}
	slot := (frame.Unix() / width) & bucketMask
	return GroupKey(int64(productID)<<productBits | int64(region)<<bucketBits | slot)
}

// ProductID returns the product id component.
func (k GroupKey) ProductID() uint16 { return uint16(int64(k) >> productBits) }

// Region returns the region code component.
func (k GroupKey) Region() uint8 { return uint8(int64(k) >> bucketBits) }

// Timestamp returns the start of the key's time bucket.
func (k GroupKey) Timestamp(bucket time.Duration) time.Time {
	width := int64(bucket / time.Second)
	if width <= 0 {
		width = 1
	}
	return time.Unix((int64(k)&bucketMask)*width, 0).UTC()
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%d", int64(k))
}
