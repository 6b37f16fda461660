package logic

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for b := Sample(0); b <= 15; b++ {
		for s := Sample(0); s <= 15; s++ {
			gotB, gotS := Encode(b, s).Decode()
			if gotB != b || gotS != s {
				t.Fatalf("Decode(Encode(%d, %d)) = (%d, %d)", b, s, gotB, gotS)
			}
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	e := Encode(0b0001, 0b0010)
	if e != 0b00100001 {
		t.Errorf("expected 0b00100001, got %08b", uint8(e))
	}
}

func TestEncodeDiscardsHighBits(t *testing.T) {
	e := Encode(0xF3, 0xA5)
	b, s := e.Decode()
	if b != 0x3 || s != 0x5 {
		t.Errorf("expected (3, 5), got (%d, %d)", b, s)
	}
}

func TestNewMergerDefaults(t *testing.T) {
	m := NewMerger()
	b, s := m.Retained()
	if b != 0 {
		t.Errorf("expected retained button 0, got %04b", b)
	}
	if s != InitialSwitches {
		t.Errorf("expected retained switches %04b, got %04b", InitialSwitches, s)
	}
	if m.LEDs() != 0 {
		t.Errorf("expected no LEDs, got %04b", m.LEDs())
	}
}

func TestMergerButtonGatedBySwitch(t *testing.T) {
	m := NewMerger()

	// All switches on initially, so the button lights directly.
	if got := m.Apply(Encode(0b0101, 0)); got != 0b0101 {
		t.Errorf("expected 0101, got %04b", got)
	}

	// Switch event (button field zero) replaces switches.
	if got := m.Apply(Encode(0, 0b0100)); got != 0b0100 {
		t.Errorf("expected 0100, got %04b", got)
	}

	// All switches off: zero button field lets the zero switch field through.
	if got := m.Apply(Encode(0, 0)); got != 0 {
		t.Errorf("expected 0000, got %04b", got)
	}
	_, s := m.Retained()
	if s != 0 {
		t.Errorf("expected switches cleared, got %04b", s)
	}
}

func TestMergerNonzeroButtonKeepsSwitches(t *testing.T) {
	m := NewMerger()
	m.Apply(Encode(0, 0b1111))

	// Nonzero button with zero switch field: switches are retained.
	got := m.Apply(Encode(0b1100, 0))
	if got != 0b1100 {
		t.Errorf("expected 1100, got %04b", got)
	}
	b, s := m.Retained()
	if b != 0b1100 || s != 0b1111 {
		t.Errorf("expected retained (1100, 1111), got (%04b, %04b)", b, s)
	}
}

func TestMergerEndToEndByte(t *testing.T) {
	m := NewMerger()
	m.Apply(Encode(0, 0b0010))

	got := m.Apply(Event(0b00100001))
	if got != 0 {
		t.Errorf("expected 0, got %04b", got)
	}
	b, s := m.Retained()
	if b != 1 || s != 2 {
		t.Errorf("expected retained (1, 2), got (%d, %d)", b, s)
	}
}

func TestEventString(t *testing.T) {
	got := Encode(0b0001, 0b1010).String()
	if got != "btn=0001 sw=1010" {
		t.Errorf("unexpected string: %s", got)
	}
}
