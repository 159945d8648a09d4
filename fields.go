package binrec

import (
	"fmt"
	"unicode/utf16"
)

// Fields are packed into words from the most-significant end. A field that
// does not fit into the rest of the current word starts a fresh word; one
// that fits is placed at the largest offset aligned to its size.

// align positions the cursor for an n-byte field.
func (f *File) align(n int) bool {
	if f.left < n {
		f.offset++
		f.left = wordSize
		if f.writing {
			if f.offset >= len(f.words) {
				f.grow(2 * len(f.words))
			}
			f.words[f.offset] = 0
		} else if f.offset >= f.count {
			f.setErr(fmt.Errorf("%w: word %d of %d", ErrFieldOverrun, f.offset, f.count))
			return false
		}
		return true
	}
	switch n {
	case 4:
		f.left &^= 3
	case 2:
		f.left &^= 1
	}
	return true
}

func (f *File) grow(n int) {
	if n <= len(f.words) {
		return
	}
	words := make([]uint64, n)
	copy(words, f.words)
	f.words = words
}

func (f *File) setErr(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *File) putBits(v uint64, n int) {
	if f.err != nil {
		return
	}
	if err := f.checkWrite(); err != nil {
		f.setErr(err)
		return
	}
	f.align(n)
	f.words[f.offset] |= v << ((f.left - n) * 8)
	f.left -= n
}

func (f *File) getBits(n int) uint64 {
	if f.err != nil {
		return 0
	}
	if err := f.checkRead(); err != nil {
		f.setErr(err)
		return 0
	}
	if !f.align(n) {
		return 0
	}
	v := f.words[f.offset] >> ((f.left - n) * 8)
	f.left -= n
	return v
}

// PutLong appends a 64-bit field.
func (f *File) PutLong(v int64) { f.putBits(uint64(v), 8) }

// PutInt appends a 32-bit field.
func (f *File) PutInt(v int32) { f.putBits(uint64(uint32(v)), 4) }

// PutShort appends a 16-bit field.
func (f *File) PutShort(v int16) { f.putBits(uint64(uint16(v)), 2) }

// PutChar appends one UTF-16 code unit.
func (f *File) PutChar(v uint16) { f.putBits(uint64(v), 2) }

// PutByte appends an 8-bit field.
func (f *File) PutByte(v int8) { f.putBits(uint64(uint8(v)), 1) }

// PutString appends a string. A nil string is written as length zero.
func (f *File) PutString(s *string) {
	if s == nil {
		f.PutShort(0)
		return
	}
	f.PutStr(*s)
}

// PutStr appends a string as a 16-bit length followed by its UTF-16 code
// units. An empty string reads back as nil.
func (f *File) PutStr(s string) {
	units := utf16.Encode([]rune(s))
	if len(units) > MaxStringLength {
		f.setErr(fmt.Errorf("%w: %d code units", ErrStringTooLong, len(units)))
		return
	}
	f.PutShort(int16(len(units)))
	for _, u := range units {
		f.PutChar(u)
	}
}

// GetLong reads a 64-bit field.
func (f *File) GetLong() int64 { return int64(f.getBits(8)) }

// GetInt reads a 32-bit field.
func (f *File) GetInt() int32 { return int32(uint32(f.getBits(4))) }

// GetShort reads a 16-bit field.
func (f *File) GetShort() int16 { return int16(uint16(f.getBits(2))) }

// GetChar reads one UTF-16 code unit.
func (f *File) GetChar() uint16 { return uint16(f.getBits(2)) }

// GetByte reads an 8-bit field.
func (f *File) GetByte() int8 { return int8(uint8(f.getBits(1))) }

// GetString reads a string. It returns nil for length zero.
func (f *File) GetString() *string {
	n := f.GetShort()
	if n == 0 || f.err != nil {
		return nil
	}
	if n < 0 {
		f.setErr(fmt.Errorf("%w: %s: negative string length %d", ErrCorrupt, f.name, n))
		return nil
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = f.GetChar()
	}
	if f.err != nil {
		return nil
	}
	s := string(utf16.Decode(units))
	return &s
}

// GetStr reads a string, returning "" for a nil string.
func (f *File) GetStr() string {
	if s := f.GetString(); s != nil {
		return *s
	}
	return ""
}

// PutLongArray writes a complete record holding values.
func (f *File) PutLongArray(values []int64, typ, version uint8) error {
	if typ > MaxType || version > MaxType {
		return f.fail("write", fmt.Errorf("%w: type %d version %d", ErrInvalidType, typ, version))
	}
	f.PutInt(int32(len(values)))
	for _, v := range values {
		f.PutLong(v)
	}
	return f.WriteRecord(typ, version)
}

// GetLongArray reads the values of a record written by PutLongArray.
func (f *File) GetLongArray() []int64 {
	n := f.arrayLen()
	values := make([]int64, n)
	for i := range values {
		values[i] = f.GetLong()
	}
	return values
}

// PutStringArray writes a complete record holding values.
func (f *File) PutStringArray(values []string, typ, version uint8) error {
	if typ > MaxType || version > MaxType {
		return f.fail("write", fmt.Errorf("%w: type %d version %d", ErrInvalidType, typ, version))
	}
	f.PutInt(int32(len(values)))
	for _, v := range values {
		f.PutStr(v)
	}
	return f.WriteRecord(typ, version)
}

// GetStringArray reads the values of a record written by PutStringArray.
// Empty strings read back as "".
func (f *File) GetStringArray() []string {
	n := f.arrayLen()
	values := make([]string, n)
	for i := range values {
		values[i] = f.GetStr()
	}
	return values
}

func (f *File) arrayLen() int {
	n := int(f.GetInt())
	if f.err != nil {
		return 0
	}
	// Every element takes at least two bytes of the remaining words.
	if n < 0 || n > (f.count-f.offset)*wordSize/2 {
		f.setErr(fmt.Errorf("%w: array length %d", ErrFieldOverrun, n))
		return 0
	}
	return n
}
