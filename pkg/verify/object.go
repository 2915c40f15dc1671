package verify

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"encoding/binary"

	"github.com/pykeio/cargo-no-std/pkg/errors"
)

// ObjectLoader opens the debugging information of one object file. It
// returns nil data without error when the object carries none.
type ObjectLoader func(data []byte) (*dwarf.Data, error)

// LoadDWARF is the default ObjectLoader. It accepts ELF and Mach-O
// objects of either byte order; relocations of relocatable ELF objects
// are applied by debug/elf.
func LoadDWARF(data []byte) (*dwarf.Data, error) {
	switch {
	case bytes.HasPrefix(data, []byte(elf.ELFMAG)):
		return loadELF(data)
	case isMachO(data):
		return loadMachO(data)
	}
	return nil, errors.New(errors.ErrCodeObjectParse, "unrecognised object format")
}

func loadELF(data []byte) (*dwarf.Data, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeObjectParse, err, "parse ELF object")
	}
	defer f.Close()

	if f.Section(".debug_info") == nil && f.Section(".zdebug_info") == nil {
		return nil, nil
	}
	d, err := f.DWARF()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDebugInfoDecode, err, "load ELF debug sections")
	}
	return d, nil
}

func loadMachO(data []byte) (*dwarf.Data, error) {
	f, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeObjectParse, err, "parse Mach-O object")
	}
	defer f.Close()

	if f.Section("__debug_info") == nil && f.Section("__zdebug_info") == nil {
		return nil, nil
	}
	d, err := f.DWARF()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDebugInfoDecode, err, "load Mach-O debug sections")
	}
	return d, nil
}

func isMachO(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		switch order.Uint32(data) {
		case macho.Magic32, macho.Magic64:
			return true
		}
	}
	return false
}

// containsNamespace walks every unit depth first and reports whether a
// namespace entry is named exactly name.
func containsNamespace(d *dwarf.Data, name string) (bool, error) {
	r := d.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeDebugInfoDecode, err, "read debug entries")
		}
		if e == nil {
			return false, nil
		}
		if e.Tag != dwarf.TagNamespace {
			continue
		}
		if n, ok := e.Val(dwarf.AttrName).(string); ok && n == name {
			return true, nil
		}
	}
}
