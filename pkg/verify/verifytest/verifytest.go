// Package verifytest builds small artifacts for exercising the verifier:
// DWARF sections, relocatable ELF objects and ar archives.
package verifytest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	tagCompileUnit = 0x11
	tagNamespace   = 0x39
	attrName       = 0x03
	formString     = 0x08

	abbrevCompileUnit = 1
	abbrevNamespace   = 2
)

// DebugInfo returns .debug_abbrev and .debug_info contents describing one
// compile unit that holds the namespaces nested in order, so
// DebugInfo("core", "fmt") declares core::fmt.
func DebugInfo(namespaces ...string) (abbrev, info []byte) {
	abbrev = []byte{
		abbrevCompileUnit, tagCompileUnit, 1, attrName, formString, 0, 0,
		abbrevNamespace, tagNamespace, 1, attrName, formString, 0, 0,
		0,
	}

	var dies bytes.Buffer
	dies.WriteByte(abbrevCompileUnit)
	dies.WriteString("lib.rs\x00")
	for _, ns := range namespaces {
		dies.WriteByte(abbrevNamespace)
		dies.WriteString(ns + "\x00")
	}
	for range len(namespaces) + 1 {
		dies.WriteByte(0)
	}

	var hdr bytes.Buffer
	// DWARF 4, 32-bit: version, abbrev offset, address size.
	_ = binary.Write(&hdr, binary.LittleEndian, uint16(4))
	_ = binary.Write(&hdr, binary.LittleEndian, uint32(0))
	hdr.WriteByte(8)

	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, uint32(hdr.Len()+dies.Len()))
	out.Write(hdr.Bytes())
	out.Write(dies.Bytes())
	return abbrev, out.Bytes()
}

// Section is a named ELF section.
type Section struct {
	Name string
	Data []byte
}

// ELF returns a little-endian ELF64 relocatable object holding sections.
func ELF(sections ...Section) []byte {
	const (
		ehdrSize  = 64
		shdrSize  = 64
		shtProg   = 1
		shtStrtab = 3
	)

	shstrtab := []byte{0}
	nameOff := make([]uint32, len(sections)+1)
	for i, s := range sections {
		nameOff[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, s.Name...)
		shstrtab = append(shstrtab, 0)
	}
	nameOff[len(sections)] = uint32(len(shstrtab))
	shstrtab = append(shstrtab, ".shstrtab\x00"...)

	var body bytes.Buffer
	offsets := make([]uint64, len(sections)+1)
	for i, s := range sections {
		offsets[i] = uint64(ehdrSize + body.Len())
		body.Write(s.Data)
	}
	offsets[len(sections)] = uint64(ehdrSize + body.Len())
	body.Write(shstrtab)
	for body.Len()%8 != 0 {
		body.WriteByte(0)
	}
	shoff := uint64(ehdrSize + body.Len())
	shnum := uint16(len(sections) + 2)

	var out bytes.Buffer
	le := binary.LittleEndian
	out.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	_ = binary.Write(&out, le, uint16(1))  // ET_REL
	_ = binary.Write(&out, le, uint16(62)) // EM_X86_64
	_ = binary.Write(&out, le, uint32(1))
	_ = binary.Write(&out, le, uint64(0)) // entry
	_ = binary.Write(&out, le, uint64(0)) // phoff
	_ = binary.Write(&out, le, shoff)
	_ = binary.Write(&out, le, uint32(0)) // flags
	_ = binary.Write(&out, le, uint16(ehdrSize))
	_ = binary.Write(&out, le, uint16(0)) // phentsize
	_ = binary.Write(&out, le, uint16(0)) // phnum
	_ = binary.Write(&out, le, uint16(shdrSize))
	_ = binary.Write(&out, le, shnum)
	_ = binary.Write(&out, le, shnum-1) // shstrndx
	out.Write(body.Bytes())

	header := func(name, typ uint32, off, size uint64) {
		_ = binary.Write(&out, le, name)
		_ = binary.Write(&out, le, typ)
		_ = binary.Write(&out, le, uint64(0)) // flags
		_ = binary.Write(&out, le, uint64(0)) // addr
		_ = binary.Write(&out, le, off)
		_ = binary.Write(&out, le, size)
		_ = binary.Write(&out, le, uint32(0)) // link
		_ = binary.Write(&out, le, uint32(0)) // info
		_ = binary.Write(&out, le, uint64(1)) // addralign
		_ = binary.Write(&out, le, uint64(0)) // entsize
	}
	out.Write(make([]byte, shdrSize))
	for i, s := range sections {
		header(nameOff[i], shtProg, offsets[i], uint64(len(s.Data)))
	}
	header(nameOff[len(sections)], shtStrtab, offsets[len(sections)], uint64(len(shstrtab)))
	return out.Bytes()
}

// Object returns an ELF object whose debug info declares the namespaces
// nested in order. With no namespaces the unit is empty.
func Object(namespaces ...string) []byte {
	abbrev, info := DebugInfo(namespaces...)
	return ELF(
		Section{Name: ".text", Data: []byte{0xc3}},
		Section{Name: ".debug_abbrev", Data: abbrev},
		Section{Name: ".debug_info", Data: info},
	)
}

// StrippedObject returns an ELF object without debug sections.
func StrippedObject() []byte {
	return ELF(Section{Name: ".text", Data: []byte{0xc3}})
}

// Member is one archive entry.
type Member struct {
	Name string
	Data []byte
}

// Archive returns a GNU ar archive with an empty symbol table. Names longer
// than fifteen bytes go through the "//" long-name table.
func Archive(members ...Member) []byte {
	var longNames bytes.Buffer
	refs := make([]string, len(members))
	for i, m := range members {
		if len(m.Name) < 16 {
			refs[i] = m.Name + "/"
			continue
		}
		refs[i] = fmt.Sprintf("/%d", longNames.Len())
		longNames.WriteString(m.Name + "/\n")
	}

	var out bytes.Buffer
	out.WriteString("!<arch>\n")
	writeMember(&out, "/", make([]byte, 4))
	if longNames.Len() > 0 {
		writeMember(&out, "//", longNames.Bytes())
	}
	for i, m := range members {
		writeMember(&out, refs[i], m.Data)
	}
	return out.Bytes()
}

// BSDArchive returns a BSD ar archive storing every name after the header.
func BSDArchive(members ...Member) []byte {
	var out bytes.Buffer
	out.WriteString("!<arch>\n")
	for _, m := range members {
		name := m.Name
		for len(name)%8 != 0 {
			name += "\x00"
		}
		writeMember(&out, fmt.Sprintf("#1/%d", len(name)), append([]byte(name), m.Data...))
	}
	return out.Bytes()
}

func writeMember(out *bytes.Buffer, name string, data []byte) {
	fmt.Fprintf(out, "%-16s%-12s%-6s%-6s%-8s%-10d`\n", name, "0", "0", "0", "644", len(data))
	out.Write(data)
	if len(data)%2 == 1 {
		out.WriteByte('\n')
	}
}

// Rlib returns a GNU archive shaped like a rustc rlib: a metadata member
// and one codegen-unit object per namespace set.
func Rlib(crate string, objects ...[]byte) []byte {
	members := []Member{{Name: "lib.rmeta", Data: []byte("rust\x00\x00\x00\x08")}}
	for i, o := range objects {
		members = append(members, Member{
			Name: fmt.Sprintf("%s-%s.%s.%d-cgu.0.rcgu.o", crate, strings.Repeat("0", 16), crate, i),
			Data: o,
		})
	}
	return Archive(members...)
}
