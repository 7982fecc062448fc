package lsp

import (
	"github.com/tidwall/gjson"

	"github.com/codersauce/red/internal/coord"
)

// Encoding is the unit a server's Position.Character is measured in.
type Encoding int

const (
	// EncodingUTF16 is the LSP default: Character counts UTF-16 code units.
	EncodingUTF16 Encoding = iota
	// EncodingUTF32 counts codepoints directly — C1's native unit.
	EncodingUTF32
)

// negotiateEncoding inspects a raw initialize result for
// capabilities.positionEncoding, per spec.md §6: the client offers
// "utf-32" first in general.positionEncodings (see
// DefaultClientCapabilities); if the server doesn't echo it back, every
// position sent to or read from that server must be translated through
// UTF-16. Read via gjson rather than unmarshalling into
// ServerCapabilities, since a plain string field isn't worth the
// struct's full decode cost on every server spawn.
func negotiateEncoding(rawInitializeResult []byte) Encoding {
	enc := gjson.GetBytes(rawInitializeResult, "capabilities.positionEncoding")
	if enc.Exists() && enc.String() == "utf-32" {
		return EncodingUTF32
	}
	return EncodingUTF16
}

// toProtocolPosition converts a codepoint line/col into the wire
// Position a server using enc expects.
func toProtocolPosition(enc Encoding, lineText string, line, col int) Position {
	if enc == EncodingUTF32 {
		return Position{Line: line, Character: col}
	}
	return Position{Line: line, Character: coord.CharToUTF16(lineText, col)}
}

// fromProtocolPosition converts a wire Position from a server using enc
// back into a codepoint column on lineText.
func fromProtocolPosition(enc Encoding, lineText string, p Position) (line, col int) {
	if enc == EncodingUTF32 {
		return p.Line, p.Character
	}
	return p.Line, coord.UTF16ToChar(lineText, p.Character)
}
