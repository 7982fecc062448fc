package lsp

import "testing"

func TestNegotiateEncodingPrefersUTF32WhenEchoed(t *testing.T) {
	raw := []byte(`{"capabilities":{"positionEncoding":"utf-32"}}`)
	if got := negotiateEncoding(raw); got != EncodingUTF32 {
		t.Fatalf("expected EncodingUTF32, got %v", got)
	}
}

func TestNegotiateEncodingFallsBackToUTF16(t *testing.T) {
	raw := []byte(`{"capabilities":{}}`)
	if got := negotiateEncoding(raw); got != EncodingUTF16 {
		t.Fatalf("expected EncodingUTF16 fallback, got %v", got)
	}
}

func TestToProtocolPositionUTF16SplitsAstralCharacter(t *testing.T) {
	line := "a\U0001F600b" // emoji occupies one codepoint, two UTF-16 units
	pos := toProtocolPosition(EncodingUTF16, line, 0, 2)
	if pos.Character != 3 {
		t.Fatalf("expected UTF-16 offset 3 after the astral char, got %d", pos.Character)
	}
}

func TestFromProtocolPositionRoundTripsUTF16(t *testing.T) {
	line := "a\U0001F600b"
	wire := toProtocolPosition(EncodingUTF16, line, 5, 3)
	_, col := fromProtocolPosition(EncodingUTF16, line, wire)
	if col != 3 {
		t.Fatalf("expected round-tripped col 3, got %d", col)
	}
}

func TestUTF32PositionIsCodepointIdentity(t *testing.T) {
	pos := toProtocolPosition(EncodingUTF32, "a\U0001F600b", 0, 2)
	if pos.Character != 2 {
		t.Fatalf("expected utf-32 passthrough of codepoint index, got %d", pos.Character)
	}
}
