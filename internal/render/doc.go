// Package render defines the contract between the scheduler and the code
// that turns reassembled segments into images.
//
// Raw is the built-in implementation. It stacks uncompressed 8-bit segments
// in index order and composes a simple false colour image from the visible
// and infrared channels. Compressed segments need an external decompressor
// and are rejected with a validation error.
package render
