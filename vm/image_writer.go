package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Image format
//
// An image is the magic bytes followed by one CBOR document holding every
// object record. Declarations are not part of an image; they come from the
// source files that are loaded before the image.
// ---------------------------------------------------------------------------

// ImageMagic identifies an oosh object image.
var ImageMagic = [4]byte{'O', 'O', 'S', 'H'}

// ImageVersion is the current image format version.
const ImageVersion uint32 = 1

type imageFile struct {
	Version uint32        `cbor:"version"`
	Objects []imageObject `cbor:"objects"`
}

type imageObject struct {
	ID          string      `cbor:"id"`
	Class       string      `cbor:"class"`
	Constructed bool        `cbor:"constructed"`
	Destroyed   bool        `cbor:"destroyed"`
	Cells       []imageCell `cbor:"cells"`
}

type imageCell struct {
	Name       string `cbor:"name"`
	Visibility int    `cbor:"visibility"`
	Value      string `cbor:"value"`
	Assigned   bool   `cbor:"assigned"`
}

// imageEncMode gives deterministic encoding: the same object space always
// produces the same bytes.
var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteImage writes every object record to w.
func (vm *VM) WriteImage(w io.Writer) error {
	img := imageFile{Version: ImageVersion}
	for _, obj := range vm.Objects.All() {
		rec := imageObject{
			ID:          obj.ID,
			Class:       obj.Class,
			Constructed: obj.constructed,
			Destroyed:   obj.destroyed,
		}
		for _, a := range obj.Attributes() {
			rec.Cells = append(rec.Cells, imageCell{
				Name:       a.Name,
				Visibility: int(a.Visibility),
				Value:      a.Value.String(),
				Assigned:   a.Value.IsSet(),
			})
		}
		img.Objects = append(img.Objects, rec)
	}

	data, err := imageEncMode.Marshal(&img)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	if _, err := w.Write(ImageMagic[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SaveImage writes an image to a file.
func (vm *VM) SaveImage(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := vm.WriteImage(f); err != nil {
		f.Close()
		return err
	}
	log.Infof("saved image %s (%d objects)", path, vm.Objects.Len())
	return f.Close()
}
