package mem

import "testing"

func TestTypedAccessLittleEndian(t *testing.T) {
	m := New(0x1000, 0x100)
	m.WriteU32(0x1000, 0xe59fc000)
	if got := m.ReadU8(0x1000); got != 0x00 {
		t.Errorf("low byte = %#x, want 0x00", got)
	}
	if got := m.ReadU8(0x1003); got != 0xe5 {
		t.Errorf("high byte = %#x, want 0xe5", got)
	}
	if got := m.ReadU16(0x1002); got != 0xe59f {
		t.Errorf("ReadU16 = %#x, want 0xe59f", got)
	}
	if got := m.ReadU32(0x1000); got != 0xe59fc000 {
		t.Errorf("ReadU32 = %#x, want 0xe59fc000", got)
	}
}

func TestReadWriteBytes(t *testing.T) {
	m := New(0, 64)
	m.Write(8, []byte{1, 2, 3, 4})
	got := m.Read(8, 4)
	if got[0] != 1 || got[3] != 4 {
		t.Errorf("Read = %v", got)
	}
	// Read returns a copy, not a view.
	got[0] = 99
	if m.ReadU8(8) != 1 {
		t.Error("Read must copy out of guest memory")
	}
}

func TestAllocAligns(t *testing.T) {
	m := New(0x1000, 0x100)
	a := m.Alloc(1, 4)
	b := m.Alloc(8, 8)
	if a%4 != 0 {
		t.Errorf("first allocation %#x not 4-aligned", a)
	}
	if b%8 != 0 {
		t.Errorf("second allocation %#x not 8-aligned", b)
	}
	if b <= a {
		t.Errorf("allocations must not overlap: %#x then %#x", a, b)
	}
}

func TestUnmappedAccessPanics(t *testing.T) {
	m := New(0x1000, 0x10)
	defer func() {
		if recover() == nil {
			t.Fatal("access below base did not panic")
		}
	}()
	m.ReadU32(0xfff)
}

func TestAccessPastEndPanics(t *testing.T) {
	m := New(0x1000, 0x10)
	defer func() {
		if recover() == nil {
			t.Fatal("access past end did not panic")
		}
	}()
	m.ReadU32(0x100e)
}
