package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

// Constant pool tags.
const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

const maxPoolSize = 0xFFFF

type poolEntry struct {
	tag  Tag
	a, b uint16
	kind uint8
	bits uint64
	raw  []byte
	str  string
}

// Pool is a class constant pool. Indexes of existing entries never change;
// new entries are appended and deduplicated.
type Pool struct {
	entries []poolEntry
	lookup  map[string]uint16
	err     error
}

func parsePool(r *reader) (*Pool, error) {
	count := int(r.u2())
	p := &Pool{entries: make([]poolEntry, count)}

	for i := 1; i < count; i++ {
		e := poolEntry{tag: Tag(r.u1())}

		switch e.tag {
		case TagUtf8:
			n := int(r.u2())
			e.raw = r.bytes(n)
			e.str = decodeModifiedUTF8(e.raw)
		case TagInteger, TagFloat:
			e.bits = uint64(r.u4())
		case TagLong, TagDouble:
			e.bits = uint64(r.u4())<<32 | uint64(r.u4())
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			e.a = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			e.a = r.u2()
			e.b = r.u2()
		case TagMethodHandle:
			e.kind = r.u1()
			e.a = r.u2()
		default:
			return nil, fmt.Errorf("%w: unknown constant tag %d at index %d", ErrMalformed, e.tag, i)
		}

		if r.err != nil {
			return nil, r.err
		}

		p.entries[i] = e

		if e.tag == TagLong || e.tag == TagDouble {
			i++
		}
	}

	return p, nil
}

// Len is the constant_pool_count value of the pool.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Tag returns the tag at index i, or 0 when i is out of range.
func (p *Pool) Tag(i uint16) Tag {
	if int(i) <= 0 || int(i) >= len(p.entries) {
		return 0
	}

	return p.entries[i].tag
}

func (p *Pool) entry(i uint16, tags ...Tag) (poolEntry, error) {
	if int(i) <= 0 || int(i) >= len(p.entries) {
		return poolEntry{}, fmt.Errorf("%w: constant index %d out of range", ErrMalformed, i)
	}

	e := p.entries[i]
	for _, t := range tags {
		if e.tag == t {
			return e, nil
		}
	}

	return poolEntry{}, fmt.Errorf("%w: constant %d has tag %d", ErrMalformed, i, e.tag)
}

// Utf8 returns the string stored at index i.
func (p *Pool) Utf8(i uint16) (string, error) {
	e, err := p.entry(i, TagUtf8)
	if err != nil {
		return "", err
	}

	return e.str, nil
}

// ClassName returns the internal name referenced by the Class entry at i.
func (p *Pool) ClassName(i uint16) (string, error) {
	e, err := p.entry(i, TagClass)
	if err != nil {
		return "", err
	}

	return p.Utf8(e.a)
}

// NameAndType resolves a NameAndType entry.
func (p *Pool) NameAndType(i uint16) (string, string, error) {
	e, err := p.entry(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}

	name, err := p.Utf8(e.a)
	if err != nil {
		return "", "", err
	}

	desc, err := p.Utf8(e.b)
	if err != nil {
		return "", "", err
	}

	return name, desc, nil
}

// MemberRef resolves a field, method or interface method reference.
func (p *Pool) MemberRef(i uint16) (owner, name, desc string, err error) {
	e, err := p.entry(i, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return "", "", "", err
	}

	if owner, err = p.ClassName(e.a); err != nil {
		return "", "", "", err
	}

	name, desc, err = p.NameAndType(e.b)

	return owner, name, desc, err
}

// DynamicRef resolves the name and descriptor of a Dynamic or InvokeDynamic entry.
func (p *Pool) DynamicRef(i uint16) (string, string, error) {
	e, err := p.entry(i, TagDynamic, TagInvokeDynamic)
	if err != nil {
		return "", "", err
	}

	return p.NameAndType(e.b)
}

// Constant describes a loadable constant at index i.
func (p *Pool) Constant(i uint16) (Constant, error) {
	e, err := p.entry(i, TagInteger, TagFloat, TagLong, TagDouble, TagString, TagClass,
		TagMethodType, TagMethodHandle, TagDynamic)
	if err != nil {
		return Constant{}, err
	}

	c := Constant{Index: i, Tag: e.tag}

	switch e.tag {
	case TagInteger:
		c.Value = fmt.Sprintf("%d", int32(uint32(e.bits)))
	case TagFloat:
		c.Value = fmt.Sprintf("%gF", math.Float32frombits(uint32(e.bits)))
	case TagLong:
		c.Value = fmt.Sprintf("%dL", int64(e.bits))
	case TagDouble:
		c.Value = fmt.Sprintf("%gD", math.Float64frombits(e.bits))
	case TagString:
		s, err := p.Utf8(e.a)
		if err != nil {
			return Constant{}, err
		}

		c.Value = fmt.Sprintf("%q", s)
	case TagClass:
		s, err := p.Utf8(e.a)
		if err != nil {
			return Constant{}, err
		}

		c.Value = s
	case TagMethodType:
		s, err := p.Utf8(e.a)
		if err != nil {
			return Constant{}, err
		}

		c.Value = s
	case TagMethodHandle:
		owner, name, desc, err := p.MemberRef(e.a)
		if err != nil {
			return Constant{}, err
		}

		c.Value = owner + "." + name + desc
	case TagDynamic:
		_, desc, err := p.DynamicRef(i)
		if err != nil {
			return Constant{}, err
		}

		c.Value = desc
	}

	return c, nil
}

func (p *Pool) key(e poolEntry) string {
	switch e.tag {
	case TagUtf8:
		return fmt.Sprintf("%d:%s", e.tag, e.str)
	case TagInteger, TagFloat, TagLong, TagDouble:
		return fmt.Sprintf("%d:%d", e.tag, e.bits)
	case TagMethodHandle:
		return fmt.Sprintf("%d:%d:%d", e.tag, e.kind, e.a)
	default:
		return fmt.Sprintf("%d:%d:%d", e.tag, e.a, e.b)
	}
}

func (p *Pool) add(e poolEntry) uint16 {
	if p.lookup == nil {
		p.lookup = make(map[string]uint16, len(p.entries))

		for i := 1; i < len(p.entries); i++ {
			if p.entries[i].tag == 0 {
				continue
			}

			k := p.key(p.entries[i])
			if _, ok := p.lookup[k]; !ok {
				p.lookup[k] = uint16(i)
			}
		}
	}

	k := p.key(e)
	if i, ok := p.lookup[k]; ok {
		return i
	}

	if len(p.entries) == 0 {
		p.entries = append(p.entries, poolEntry{})
	}

	wide := e.tag == TagLong || e.tag == TagDouble

	next := len(p.entries)
	if wide {
		next++
	}

	if next >= maxPoolSize {
		p.err = fmt.Errorf("%w: constant pool overflow", ErrMalformed)
		return 0
	}

	i := uint16(len(p.entries))
	p.entries = append(p.entries, e)

	if wide {
		p.entries = append(p.entries, poolEntry{})
	}

	p.lookup[k] = i

	return i
}

// AddUtf8 interns a string.
func (p *Pool) AddUtf8(s string) uint16 {
	return p.add(poolEntry{tag: TagUtf8, str: s, raw: encodeModifiedUTF8(s)})
}

// AddClass interns a Class entry.
func (p *Pool) AddClass(internalName string) uint16 {
	return p.add(poolEntry{tag: TagClass, a: p.AddUtf8(internalName)})
}

// AddString interns a String entry.
func (p *Pool) AddString(s string) uint16 {
	return p.add(poolEntry{tag: TagString, a: p.AddUtf8(s)})
}

// AddInteger interns an Integer entry.
func (p *Pool) AddInteger(v int32) uint16 {
	return p.add(poolEntry{tag: TagInteger, bits: uint64(uint32(v))})
}

// AddLong interns a Long entry.
func (p *Pool) AddLong(v int64) uint16 {
	return p.add(poolEntry{tag: TagLong, bits: uint64(v)})
}

// AddNameAndType interns a NameAndType entry.
func (p *Pool) AddNameAndType(name, desc string) uint16 {
	return p.add(poolEntry{tag: TagNameAndType, a: p.AddUtf8(name), b: p.AddUtf8(desc)})
}

// AddFieldref interns a field reference.
func (p *Pool) AddFieldref(owner, name, desc string) uint16 {
	return p.add(poolEntry{tag: TagFieldref, a: p.AddClass(owner), b: p.AddNameAndType(name, desc)})
}

// AddMethodref interns a method or interface method reference.
func (p *Pool) AddMethodref(owner, name, desc string, itf bool) uint16 {
	tag := TagMethodref
	if itf {
		tag = TagInterfaceMethodref
	}

	return p.add(poolEntry{tag: tag, a: p.AddClass(owner), b: p.AddNameAndType(name, desc)})
}

func (p *Pool) write(w *writer) error {
	if p.err != nil {
		return p.err
	}

	count := len(p.entries)
	if count == 0 {
		count = 1
	}

	w.u2(uint16(count))

	for i := 1; i < len(p.entries); i++ {
		e := p.entries[i]
		if e.tag == 0 {
			continue
		}

		w.u1(uint8(e.tag))

		switch e.tag {
		case TagUtf8:
			w.u2(uint16(len(e.raw)))
			w.bytes(e.raw)
		case TagInteger, TagFloat:
			w.u4(uint32(e.bits))
		case TagLong, TagDouble:
			w.u4(uint32(e.bits >> 32))
			w.u4(uint32(e.bits))
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			w.u2(e.a)
		case TagMethodHandle:
			w.u1(e.kind)
			w.u2(e.a)
		default:
			w.u2(e.a)
			w.u2(e.b)
		}
	}

	return nil
}

func decodeModifiedUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))

	for i := 0; i < len(b); {
		c := b[i]

		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, uint16(c))
			i++
		}
	}

	return string(utf16.Decode(units))
}

func encodeModifiedUTF8(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units))

	for _, u := range units {
		switch {
		case u >= 0x01 && u <= 0x7F:
			out = append(out, byte(u))
		case u <= 0x7FF:
			out = append(out, byte(0xC0|(u>>6)&0x1F), byte(0x80|u&0x3F))
		default:
			out = append(out, byte(0xE0|(u>>12)&0x0F), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
		}
	}

	return out
}

// reader is a cursor over big-endian class-file data that records the first error.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}

	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: unexpected end of data at offset %d", ErrMalformed, r.pos)
		return false
	}

	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}

	v := r.data[r.pos]
	r.pos++

	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}

	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2

	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}

	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4

	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}

	v := r.data[r.pos : r.pos+n]
	r.pos += n

	return v
}

// writer appends big-endian class-file data.
type writer struct {
	buf []byte
}

func (w *writer) u1(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u2(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) u4(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}
