// Package bitmap provides an owned pixel buffer with typed samples and the
// operations imgkit performs on it: conversion, scaling, thresholding,
// histograms, statistics, copying and file IO.
//
// A Bitmap has exactly one owner. Operations named ConvertTo* (and the other
// methods documented as replacing the buffer) compute a new buffer and swap it
// into the receiver, so the handle keeps its identity while its contents
// change. Callers must not keep slices obtained from Bits or ScanLine across
// such a call. Release drops the buffer; any later operation fails with
// ErrReleased.
//
// Bitmap performs no internal locking. Distinct bitmaps may be used from
// different goroutines; a single bitmap needs external synchronisation.
package bitmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"imgkit/pkg/colorutil"
	"imgkit/pkg/geometry"
)

// Common errors for bitmap operations.
var (
	// ErrAllocation is returned for invalid dimensions or depths, or when
	// the requested buffer exceeds MaxBufferBytes.
	ErrAllocation = errors.New("bitmap: allocation failed")

	// ErrDecode is returned when a file or stream cannot be decoded.
	ErrDecode = errors.New("bitmap: decode failed")

	// ErrUnsupportedType is returned when an operation does not support the
	// bitmap's pixel type or depth.
	ErrUnsupportedType = errors.New("bitmap: unsupported pixel type")

	// ErrUnsupportedFormat is returned when a file extension has no encoder.
	ErrUnsupportedFormat = errors.New("bitmap: unsupported file format")

	// ErrBounds is returned when a rectangle or point lies outside a bitmap.
	ErrBounds = errors.New("bitmap: region out of bounds")

	// ErrReleased is returned by every operation on a released bitmap.
	ErrReleased = errors.New("bitmap: use after release")

	// ErrInvalidArgument is returned for out-of-domain scalar arguments such
	// as a zero bin count or an inverted scale window.
	ErrInvalidArgument = errors.New("bitmap: invalid argument")
)

// MaxBufferBytes is the largest pixel buffer Allocate will create.
const MaxBufferBytes = 1 << 31

// Type is the pixel storage type of a bitmap.
type Type int

const (
	TypeUnknown Type = iota
	TypeBitmap       // 8 bpp indexed/grey, 24 bpp RGB or 32 bpp RGBA
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeFloat  // float32
	TypeDouble // float64
)

func (t Type) String() string {
	switch t {
	case TypeBitmap:
		return "bitmap"
	case TypeUint16:
		return "uint16"
	case TypeInt16:
		return "int16"
	case TypeUint32:
		return "uint32"
	case TypeInt32:
		return "int32"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	default:
		return "unknown"
	}
}

// ParseType converts a name produced by Type.String back to a Type.
func ParseType(s string) (Type, error) {
	for t := TypeBitmap; t <= TypeDouble; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("%w: unknown pixel type %q", ErrInvalidArgument, s)
}

// IsValid reports whether t is a known pixel type.
func (t Type) IsValid() bool {
	return t >= TypeBitmap && t <= TypeDouble
}

// IsFloat reports whether samples are floating point.
func (t Type) IsFloat() bool {
	return t == TypeFloat || t == TypeDouble
}

// bitsPerPixel returns the fixed depth of the non-standard types.
func (t Type) bitsPerPixel() int {
	switch t {
	case TypeUint16, TypeInt16:
		return 16
	case TypeUint32, TypeInt32, TypeFloat:
		return 32
	case TypeDouble:
		return 64
	default:
		return 0
	}
}

// Bitmap is an owned pixel buffer plus its metadata.
type Bitmap struct {
	typ     Type
	bpp     int
	width   int
	height  int
	pitch   int
	bytesPP int
	bits    []byte

	palette     []color.RGBA
	greyPalette bool

	released bool

	// DPI is the resolution recorded in the source file, or 0 if unknown.
	DPI float64
}

// Pitch returns the row stride for a width and depth: the row bytes rounded
// up to a 4-byte boundary.
func Pitch(width, bpp int) int {
	return ((width*bpp + 31) / 32) * 4
}

// Allocate creates a zero-filled bitmap. A depth of 8, 24 or 32 creates a
// standard bitmap; 16 creates a TypeUint16 bitmap. 8-bit bitmaps get a grey
// level palette.
func Allocate(width, height, bpp int) (*Bitmap, error) {
	switch bpp {
	case 8, 24, 32:
		return AllocateT(TypeBitmap, width, height, bpp)
	case 16:
		return AllocateT(TypeUint16, width, height, 16)
	default:
		return nil, fmt.Errorf("%w: unsupported depth %d", ErrAllocation, bpp)
	}
}

// AllocateT creates a zero-filled bitmap of the given pixel type. bpp is only
// consulted for TypeBitmap, where it must be 8, 24 or 32.
func AllocateT(typ Type, width, height, bpp int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrAllocation, width, height)
	}
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: invalid pixel type %d", ErrAllocation, typ)
	}
	if typ == TypeBitmap {
		if bpp != 8 && bpp != 24 && bpp != 32 {
			return nil, fmt.Errorf("%w: unsupported depth %d", ErrAllocation, bpp)
		}
	} else {
		bpp = typ.bitsPerPixel()
	}

	if width > MaxBufferBytes*8/bpp {
		return nil, fmt.Errorf("%w: width %d at %d bpp exceeds %d bytes",
			ErrAllocation, width, bpp, int64(MaxBufferBytes))
	}
	pitch := Pitch(width, bpp)
	if height > MaxBufferBytes/pitch {
		return nil, fmt.Errorf("%w: %dx%d at %d bpp exceeds %d bytes",
			ErrAllocation, width, height, bpp, int64(MaxBufferBytes))
	}

	b := &Bitmap{
		typ:         typ,
		bpp:         bpp,
		width:       width,
		height:      height,
		pitch:       pitch,
		bytesPP:     bpp / 8,
		bits:        make([]byte, pitch*height),
		greyPalette: true,
	}
	if typ == TypeBitmap && bpp == 8 {
		b.palette = greyLevelPalette()
	}
	return b, nil
}

// AllocateLike creates a zero-filled width×height bitmap with src's type,
// depth, palette and DPI.
func AllocateLike(src *Bitmap, width, height int) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	dst, err := AllocateT(src.typ, width, height, src.bpp)
	if err != nil {
		return nil, err
	}
	dst.DPI = src.DPI
	if src.palette != nil {
		dst.palette = src.Palette()
		dst.greyPalette = src.greyPalette
	}
	return dst, nil
}

// newLike allocates a bitmap with src's dimensions and DPI.
func newLike(src *Bitmap, typ Type, bpp int) (*Bitmap, error) {
	dst, err := AllocateT(typ, src.width, src.height, bpp)
	if err != nil {
		return nil, err
	}
	dst.DPI = src.DPI
	return dst, nil
}

// Validate returns ErrReleased if the bitmap has been released.
func (b *Bitmap) Validate() error {
	if b == nil || b.released {
		return ErrReleased
	}
	return nil
}

// Released reports whether Release has been called.
func (b *Bitmap) Released() bool {
	return b == nil || b.released
}

// Release drops the pixel buffer. Calling Release more than once is a no-op.
func (b *Bitmap) Release() {
	if b == nil || b.released {
		return
	}
	b.bits = nil
	b.palette = nil
	b.width, b.height, b.pitch = 0, 0, 0
	b.released = true
}

// replace swaps nb's buffer and metadata into b. nb is released afterwards
// so that nothing but b refers to the new buffer through a live handle.
func (b *Bitmap) replace(nb *Bitmap) {
	dpi := b.DPI
	*b = *nb
	if nb.DPI == 0 {
		b.DPI = dpi
	}
	nb.Release()
}

// Clone creates a deep copy of the bitmap.
func (b *Bitmap) Clone() (*Bitmap, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	c := *b
	c.bits = make([]byte, len(b.bits))
	copy(c.bits, b.bits)
	if b.palette != nil {
		c.palette = make([]color.RGBA, len(b.palette))
		copy(c.palette, b.palette)
	}
	return &c, nil
}

// Width returns the image width in pixels.
func (b *Bitmap) Width() int {
	return b.width
}

// Height returns the image height in pixels.
func (b *Bitmap) Height() int {
	return b.height
}

// Bounds returns the pixel rectangle covered by the bitmap.
func (b *Bitmap) Bounds() geometry.Rect {
	return geometry.RectWH(0, 0, b.width, b.height)
}

// Type returns the pixel type.
func (b *Bitmap) Type() Type {
	return b.typ
}

// BPP returns the number of bits per pixel.
func (b *Bitmap) BPP() int {
	return b.bpp
}

// Pitch returns the number of bytes per row including padding.
func (b *Bitmap) Pitch() int {
	return b.pitch
}

// Line returns the number of pixel bytes per row, excluding padding.
func (b *Bitmap) Line() int {
	return b.width * b.bytesPP
}

// Channels returns the number of samples per pixel.
func (b *Bitmap) Channels() int {
	if b.typ == TypeBitmap {
		return b.bytesPP
	}
	return 1
}

// Len returns the length of the pixel buffer in bytes.
func (b *Bitmap) Len() int {
	return len(b.bits)
}

// MemorySizeInBytes returns bpp × pitch × height / 8.
func (b *Bitmap) MemorySizeInBytes() int {
	return b.bpp * b.pitch * b.height / 8
}

// Bits returns the raw pixel buffer. The slice is invalidated by any
// operation that replaces the buffer.
func (b *Bitmap) Bits() []byte {
	return b.bits
}

// ScanLine returns the pixel bytes of row y (top-down), or nil if y is out
// of range.
func (b *Bitmap) ScanLine(y int) []byte {
	if b.released || y < 0 || y >= b.height {
		return nil
	}
	start := y * b.pitch
	return b.bits[start : start+b.Line()]
}

// SameFormat reports whether b and other share pixel type and depth.
func (b *Bitmap) SameFormat(other *Bitmap) bool {
	return b.typ == other.typ && b.bpp == other.bpp
}

// IsColour reports whether the bitmap stores RGB(A) samples.
func (b *Bitmap) IsColour() bool {
	return b.typ == TypeBitmap && b.bpp >= 24
}

// IsGreyScale reports whether each pixel is a single intensity: 8-bit
// bitmaps with a grey level palette and every non-standard type.
func (b *Bitmap) IsGreyScale() bool {
	if b.typ != TypeBitmap {
		return b.typ.IsValid()
	}
	return b.bpp == 8 && b.greyPalette
}

// MaxPossibleValue returns the largest value a sample of this type can hold.
func (b *Bitmap) MaxPossibleValue() float64 {
	switch b.typ {
	case TypeBitmap:
		return math.MaxUint8
	case TypeUint16:
		return math.MaxUint16
	case TypeInt16:
		return math.MaxInt16
	case TypeUint32:
		return math.MaxUint32
	case TypeInt32:
		return math.MaxInt32
	case TypeFloat:
		return math.MaxFloat32
	case TypeDouble:
		return math.MaxFloat64
	default:
		return 0
	}
}

// MinPossibleValue returns the smallest value a sample of this type can hold.
func (b *Bitmap) MinPossibleValue() float64 {
	switch b.typ {
	case TypeInt16:
		return math.MinInt16
	case TypeInt32:
		return math.MinInt32
	case TypeFloat:
		return -math.MaxFloat32
	case TypeDouble:
		return -math.MaxFloat64
	default:
		return 0
	}
}

// Palette returns a copy of the palette of an 8-bit bitmap, or nil.
func (b *Bitmap) Palette() []color.RGBA {
	if b.palette == nil {
		return nil
	}
	p := make([]color.RGBA, len(b.palette))
	copy(p, b.palette)
	return p
}

// SetPalette replaces the palette of an 8-bit bitmap. Shorter palettes are
// padded with black.
func (b *Bitmap) SetPalette(p []color.RGBA) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.typ != TypeBitmap || b.bpp != 8 {
		return fmt.Errorf("%w: palette requires an 8-bit bitmap", ErrUnsupportedType)
	}
	if len(p) > 256 {
		return fmt.Errorf("%w: palette has %d entries", ErrInvalidArgument, len(p))
	}
	pal := make([]color.RGBA, 256)
	copy(pal, p)
	for i := len(p); i < 256; i++ {
		pal[i] = color.RGBA{A: 255}
	}
	b.palette = pal
	b.greyPalette = isGreyPalette(pal)
	return nil
}

// SetGreyLevelPalette installs the identity grey ramp on an 8-bit bitmap.
func (b *Bitmap) SetGreyLevelPalette() error {
	return b.SetPalette(greyLevelPalette())
}

func greyLevelPalette() []color.RGBA {
	p := make([]color.RGBA, 256)
	for i := range p {
		v := uint8(i)
		p[i] = color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return p
}

func isGreyPalette(p []color.RGBA) bool {
	for i, c := range p {
		v := uint8(i)
		if c.R != v || c.G != v || c.B != v {
			return false
		}
	}
	return true
}

// Sample returns channel ch of pixel (x, y) as a float64. For 8-bit
// bitmaps this is the raw palette index. Sample does not check the handle
// or the coordinates; callers validate first.
func (b *Bitmap) Sample(x, y, ch int) float64 {
	off := y*b.pitch + x*b.bytesPP
	switch b.typ {
	case TypeBitmap:
		return float64(b.bits[off+ch])
	case TypeUint16:
		return float64(binary.LittleEndian.Uint16(b.bits[off:]))
	case TypeInt16:
		return float64(int16(binary.LittleEndian.Uint16(b.bits[off:])))
	case TypeUint32:
		return float64(binary.LittleEndian.Uint32(b.bits[off:]))
	case TypeInt32:
		return float64(int32(binary.LittleEndian.Uint32(b.bits[off:])))
	case TypeFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b.bits[off:])))
	case TypeDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(b.bits[off:]))
	}
	return 0
}

// SetSample stores v into channel ch of pixel (x, y). Integer types round
// to nearest and clamp to their range. Like Sample, it does not validate.
func (b *Bitmap) SetSample(x, y, ch int, v float64) {
	off := y*b.pitch + x*b.bytesPP
	switch b.typ {
	case TypeBitmap:
		b.bits[off+ch] = uint8(clampRound(v, 0, math.MaxUint8))
	case TypeUint16:
		binary.LittleEndian.PutUint16(b.bits[off:], uint16(clampRound(v, 0, math.MaxUint16)))
	case TypeInt16:
		binary.LittleEndian.PutUint16(b.bits[off:], uint16(int16(clampRound(v, math.MinInt16, math.MaxInt16))))
	case TypeUint32:
		binary.LittleEndian.PutUint32(b.bits[off:], uint32(clampRound(v, 0, math.MaxUint32)))
	case TypeInt32:
		binary.LittleEndian.PutUint32(b.bits[off:], uint32(int32(clampRound(v, math.MinInt32, math.MaxInt32))))
	case TypeFloat:
		binary.LittleEndian.PutUint32(b.bits[off:], math.Float32bits(float32(v)))
	case TypeDouble:
		binary.LittleEndian.PutUint64(b.bits[off:], math.Float64bits(v))
	}
}

// Grey returns the intensity of pixel (x, y): the sample itself for grey
// types, the palette entry's luma for indexed bitmaps, and the Rec. 709 luma
// for colour bitmaps.
func (b *Bitmap) Grey(x, y int) float64 {
	if b.typ != TypeBitmap {
		return b.Sample(x, y, 0)
	}
	off := y*b.pitch + x*b.bytesPP
	if b.bpp == 8 {
		idx := b.bits[off]
		if b.greyPalette || b.palette == nil {
			return float64(idx)
		}
		c := b.palette[idx]
		return colorutil.Luminance(float64(c.R), float64(c.G), float64(c.B))
	}
	return colorutil.Luminance(float64(b.bits[off]), float64(b.bits[off+1]), float64(b.bits[off+2]))
}

// RGBA returns pixel (x, y) as a colour. Grey types are mapped to 0-255 by
// their maximum possible value (floats by 1.0).
func (b *Bitmap) RGBA(x, y int) color.RGBA {
	if b.typ != TypeBitmap {
		scale := 255 / b.MaxPossibleValue()
		if b.typ.IsFloat() {
			scale = 255
		}
		v := uint8(clampRound(b.Sample(x, y, 0)*scale, 0, 255))
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	off := y*b.pitch + x*b.bytesPP
	switch b.bpp {
	case 8:
		idx := b.bits[off]
		if b.palette == nil {
			return color.RGBA{R: idx, G: idx, B: idx, A: 255}
		}
		return b.palette[idx]
	case 24:
		return color.RGBA{R: b.bits[off], G: b.bits[off+1], B: b.bits[off+2], A: 255}
	default:
		return color.RGBA{R: b.bits[off], G: b.bits[off+1], B: b.bits[off+2], A: b.bits[off+3]}
	}
}

// Pixel returns all channels of pixel (x, y) after validating the handle
// and coordinates.
func (b *Bitmap) Pixel(x, y int) ([]float64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return nil, fmt.Errorf("%w: pixel (%d,%d) outside %dx%d", ErrBounds, x, y, b.width, b.height)
	}
	out := make([]float64, b.Channels())
	for ch := range out {
		out[ch] = b.Sample(x, y, ch)
	}
	return out, nil
}

// SetPixel stores the given channel values into pixel (x, y).
func (b *Bitmap) SetPixel(x, y int, values ...float64) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return fmt.Errorf("%w: pixel (%d,%d) outside %dx%d", ErrBounds, x, y, b.width, b.height)
	}
	if len(values) != b.Channels() {
		return fmt.Errorf("%w: %d values for %d channels", ErrInvalidArgument, len(values), b.Channels())
	}
	for ch, v := range values {
		b.SetSample(x, y, ch, v)
	}
	return nil
}

// Fill sets every pixel to the given channel values.
func (b *Bitmap) Fill(values ...float64) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if len(values) != b.Channels() {
		return fmt.Errorf("%w: %d values for %d channels", ErrInvalidArgument, len(values), b.Channels())
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			for ch, v := range values {
				b.SetSample(x, y, ch, v)
			}
		}
	}
	return nil
}

// FillValues converts a colour into channel values suitable for SetSample
// on b: RGB(A) for colour bitmaps, the grey level for grey types scaled to
// the type's range (floats to [0, 1]).
func (b *Bitmap) FillValues(c color.Color) []float64 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	switch {
	case b.typ == TypeBitmap && b.bpp == 32:
		return []float64{float64(n.R), float64(n.G), float64(n.B), float64(n.A)}
	case b.typ == TypeBitmap && b.bpp == 24:
		return []float64{float64(n.R), float64(n.G), float64(n.B)}
	}
	y := colorutil.Luminance(float64(n.R), float64(n.G), float64(n.B))
	switch {
	case b.typ == TypeBitmap:
		return []float64{math.Round(y)}
	case b.typ.IsFloat():
		return []float64{y / 255}
	default:
		return []float64{y * b.MaxPossibleValue() / 255}
	}
}

func (b *Bitmap) String() string {
	if b.released {
		return "Bitmap(released)"
	}
	return fmt.Sprintf("Bitmap(%dx%d %s %dbpp)", b.width, b.height, b.typ, b.bpp)
}

func clampRound(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
