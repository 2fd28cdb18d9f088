package vm

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ReadImage loads object records from r into the object space. Records with
// an identity already in memory are replaced. Loaded objects re-declare any
// attributes added since the image was written on their next dispatch.
func (vm *VM) ReadImage(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	if len(data) < len(ImageMagic) || !bytes.Equal(data[:len(ImageMagic)], ImageMagic[:]) {
		return fmt.Errorf("reading image: bad magic")
	}

	var img imageFile
	if err := cbor.Unmarshal(data[len(ImageMagic):], &img); err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}
	if img.Version != ImageVersion {
		return fmt.Errorf("reading image: unsupported version %d", img.Version)
	}

	for _, rec := range img.Objects {
		if !ValidIdentity(rec.ID) {
			return fmt.Errorf("reading image: malformed identity %q", rec.ID)
		}
		obj := NewObject(rec.Class, rec.ID)
		obj.constructed = rec.Constructed
		obj.destroyed = rec.Destroyed
		for _, c := range rec.Cells {
			v := Unset
			if c.Assigned {
				v = Text(c.Value)
			}
			obj.restore(Attribute{Name: c.Name, Visibility: Visibility(c.Visibility), Value: v})
		}
		vm.Objects.Register(obj)
	}
	return nil
}

// LoadImage reads an image file.
func (vm *VM) LoadImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := vm.ReadImage(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("loaded image %s", path)
	return nil
}
