package bitmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// SaveBitDepth selects the depth a bitmap is converted to before encoding.
type SaveBitDepth int

const (
	Bit8  SaveBitDepth = 8
	Bit16 SaveBitDepth = 16
	Bit24 SaveBitDepth = 24
	Bit32 SaveBitDepth = 32
)

// ParseSaveBitDepth converts 8, 16, 24 or 32 to a SaveBitDepth.
func ParseSaveBitDepth(bits int) (SaveBitDepth, error) {
	switch d := SaveBitDepth(bits); d {
	case Bit8, Bit16, Bit24, Bit32:
		return d, nil
	}
	return 0, fmt.Errorf("%w: save depth %d", ErrInvalidArgument, bits)
}

// Load reads and decodes an image file. TIFF resolution tags populate DPI.
func Load(path string) (*Bitmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	b, err := decodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Decode reads an image in any supported format from r.
func Decode(r io.Reader) (*Bitmap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (*Bitmap, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	if format == "tiff" {
		if dpi, err := extractTIFFDPI(bytes.NewReader(data)); err == nil {
			b.DPI = dpi
		}
	}
	return b, nil
}

// FromImage copies an image.Image into a new bitmap. Grey images become
// 8-bit or TypeUint16, paletted images keep their palette (or become 32-bit
// if the palette is translucent), opaque images become 24-bit and anything
// else 32-bit non-premultiplied RGBA.
func FromImage(img image.Image) (*Bitmap, error) {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()

	switch src := img.(type) {
	case *image.Gray:
		b, err := Allocate(w, h, 8)
		if err != nil {
			return nil, err
		}
		for y := 0; y < h; y++ {
			i := src.PixOffset(r.Min.X, r.Min.Y+y)
			copy(b.ScanLine(y), src.Pix[i:i+w])
		}
		return b, nil

	case *image.Gray16:
		b, err := AllocateT(TypeUint16, w, h, 16)
		if err != nil {
			return nil, err
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				b.SetSample(x, y, 0, float64(src.Gray16At(r.Min.X+x, r.Min.Y+y).Y))
			}
		}
		return b, nil

	case *image.Paletted:
		if !paletteIsOpaque(src.Palette) {
			break
		}
		b, err := Allocate(w, h, 8)
		if err != nil {
			return nil, err
		}
		pal := make([]color.RGBA, len(src.Palette))
		for i, c := range src.Palette {
			pal[i] = color.RGBAModel.Convert(c).(color.RGBA)
		}
		if err := b.SetPalette(pal); err != nil {
			return nil, err
		}
		for y := 0; y < h; y++ {
			i := src.PixOffset(r.Min.X, r.Min.Y+y)
			copy(b.ScanLine(y), src.Pix[i:i+w])
		}
		return b, nil
	}

	bpp := 32
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		bpp = 24
	}
	b, err := Allocate(w, h, bpp)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.NRGBA)
			b.SetSample(x, y, 0, float64(c.R))
			b.SetSample(x, y, 1, float64(c.G))
			b.SetSample(x, y, 2, float64(c.B))
			if bpp == 32 {
				b.SetSample(x, y, 3, float64(c.A))
			}
		}
	}
	return b, nil
}

func paletteIsOpaque(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return false
		}
	}
	return true
}

// ToImage copies the bitmap into an image.Image. Standard bitmaps and
// TypeUint16 are supported; convert other types first.
func (b *Bitmap) ToImage() (image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	r := image.Rect(0, 0, b.width, b.height)

	switch {
	case b.typ == TypeUint16:
		img := image.NewGray16(r)
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: uint16(b.Sample(x, y, 0))})
			}
		}
		return img, nil

	case b.typ != TypeBitmap:
		return nil, fmt.Errorf("%w: cannot export %s as an image", ErrUnsupportedType, b.typ)

	case b.bpp == 8 && b.IsGreyScale():
		img := image.NewGray(r)
		for y := 0; y < b.height; y++ {
			copy(img.Pix[y*img.Stride:], b.ScanLine(y))
		}
		return img, nil

	case b.bpp == 8:
		pal := make(color.Palette, len(b.palette))
		for i, c := range b.palette {
			pal[i] = c
		}
		img := image.NewPaletted(r, pal)
		for y := 0; y < b.height; y++ {
			copy(img.Pix[y*img.Stride:], b.ScanLine(y))
		}
		return img, nil

	case b.bpp == 24:
		img := image.NewRGBA(r)
		for y := 0; y < b.height; y++ {
			row := b.ScanLine(y)
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < b.width; x++ {
				copy(dst[x*4:x*4+3], row[x*3:x*3+3])
				dst[x*4+3] = 255
			}
		}
		return img, nil

	default:
		img := image.NewNRGBA(r)
		for y := 0; y < b.height; y++ {
			copy(img.Pix[y*img.Stride:], b.ScanLine(y))
		}
		return img, nil
	}
}

// Save converts a copy of the bitmap to depth and encodes it by the file
// extension. Non-standard types are rounded to standard first, except for
// Bit16 which converts to TypeUint16. The bitmap itself is not modified.
func (b *Bitmap) Save(path string, depth SaveBitDepth) error {
	if err := b.Validate(); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupportedFormat(path) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	out, err := b.forSave(depth)
	if err != nil {
		return err
	}
	defer out.Release()
	img, err := out.ToImage()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encode(&buf, ext, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// SaveToFile saves with a depth chosen from the bitmap: 8 bits for grey
// images, 16 for TypeUint16, 32 for RGBA and 24 for everything else.
func (b *Bitmap) SaveToFile(path string) error {
	if err := b.Validate(); err != nil {
		return err
	}
	depth := Bit24
	switch {
	case b.typ == TypeUint16:
		depth = Bit16
	case b.IsGreyScale():
		depth = Bit8
	case b.typ == TypeBitmap && b.bpp == 32:
		depth = Bit32
	}
	return b.Save(path, depth)
}

func (b *Bitmap) forSave(depth SaveBitDepth) (*Bitmap, error) {
	if depth == Bit16 {
		return ConvertToType(b, TypeUint16, false)
	}

	std := b
	if b.typ != TypeBitmap {
		s, err := StandardType(b, false)
		if err != nil {
			return nil, err
		}
		defer s.Release()
		std = s
	}
	switch depth {
	case Bit8:
		return To8Bits(std)
	case Bit24:
		return To24Bits(std)
	case Bit32:
		return To32Bits(std)
	default:
		return nil, fmt.Errorf("%w: save depth %d", ErrInvalidArgument, depth)
	}
}

func encode(w io.Writer, ext string, img image.Image) error {
	switch ext {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".gif":
		return gif.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".bmp", ".gif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// extractTIFFDPI reads the resolution tags of the first IFD.
func extractTIFFDPI(r io.ReadSeeker) (float64, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	var byteOrder binary.ByteOrder
	if header[0] == 'I' && header[1] == 'I' {
		byteOrder = binary.LittleEndian
	} else if header[0] == 'M' && header[1] == 'M' {
		byteOrder = binary.BigEndian
	} else {
		return 0, fmt.Errorf("not a valid TIFF file")
	}

	ifdOffset := byteOrder.Uint32(header[4:8])
	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(r, byteOrder, &numEntries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	var resUnit uint16 = 2 // inches

	entry := make([]byte, 12)
	for i := uint16(0); i < numEntries; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return 0, err
		}

		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		valueOffset := byteOrder.Uint32(entry[8:12])

		switch tag {
		case 282: // XResolution
			if fieldType == 5 {
				xRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 283: // YResolution
			if fieldType == 5 {
				yRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 296: // ResolutionUnit
			if fieldType == 3 {
				resUnit = byteOrder.Uint16(entry[8:10])
			}
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, fmt.Errorf("no resolution tags found")
	}
	if resUnit == 3 {
		dpi *= 2.54
	}
	return dpi, nil
}

// readTIFFRational reads a RATIONAL value at offset and restores the read
// position.
func readTIFFRational(r io.ReadSeeker, offset int64, byteOrder binary.ByteOrder) float64 {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	defer r.Seek(pos, io.SeekStart)

	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var num, denom uint32
	if binary.Read(r, byteOrder, &num) != nil || binary.Read(r, byteOrder, &denom) != nil {
		return 0
	}
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
