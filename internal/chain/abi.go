package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

const wordSize = 32

func keccak(input []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	_, _ = hash.Write(input)
	return hash.Sum(nil)
}

// Selector returns the 4-byte function selector for a canonical signature.
func Selector(signature string) []byte {
	return keccak([]byte(signature))[:4]
}

// EventTopic returns the topic0 hash for a canonical event signature.
func EventTopic(signature string) string {
	return "0x" + hex.EncodeToString(keccak([]byte(signature)))
}

// ---- encoding ----

type abiArg struct {
	dynamic bool
	head    []byte // static value, or placeholder for dynamic args
	tail    []byte
}

func uintArg(v *big.Int) abiArg {
	return abiArg{head: leftPadWord(v.Bytes())}
}

func addressArg(addr string) abiArg {
	raw, _ := hex.DecodeString(strings.TrimPrefix(NormalizeAddress(addr), "0x"))
	return abiArg{head: leftPadWord(raw)}
}

func stringArg(s string) abiArg {
	data := []byte(s)
	tail := leftPadWord(big.NewInt(int64(len(data))).Bytes())
	tail = append(tail, rightPad(data)...)
	return abiArg{dynamic: true, tail: tail}
}

// encodeCall assembles calldata for a signature with standard head/tail
// layout: static args inline, dynamic args as offsets into the tail.
func encodeCall(signature string, args ...abiArg) string {
	headLen := len(args) * wordSize
	head := make([]byte, 0, headLen)
	var tail []byte
	for _, a := range args {
		if a.dynamic {
			offset := big.NewInt(int64(headLen + len(tail)))
			head = append(head, leftPadWord(offset.Bytes())...)
			tail = append(tail, a.tail...)
		} else {
			head = append(head, a.head...)
		}
	}
	out := append(Selector(signature), head...)
	out = append(out, tail...)
	return "0x" + hex.EncodeToString(out)
}

func leftPadWord(b []byte) []byte {
	if len(b) > wordSize {
		b = b[len(b)-wordSize:]
	}
	out := make([]byte, wordSize)
	copy(out[wordSize-len(b):], b)
	return out
}

func rightPad(b []byte) []byte {
	if len(b)%wordSize == 0 {
		return b
	}
	out := make([]byte, (len(b)/wordSize+1)*wordSize)
	copy(out, b)
	return out
}

// ---- decoding ----

// abiData is decoded return data viewed as a sequence of 32-byte words.
// Word indices and offsets follow the Solidity ABI head/tail layout.
type abiData struct {
	raw []byte
}

func parseReturnData(hexData string) (*abiData, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(hexData)), "0x")
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid return data: %w", err)
	}
	return &abiData{raw: raw}, nil
}

func (d *abiData) words() int { return len(d.raw) / wordSize }

func (d *abiData) word(i int) ([]byte, error) {
	start := i * wordSize
	if start < 0 || start+wordSize > len(d.raw) {
		return nil, fmt.Errorf("return data truncated at word %d", i)
	}
	return d.raw[start : start+wordSize], nil
}

func (d *abiData) uint(i int) (*big.Int, error) {
	w, err := d.word(i)
	if err != nil {
		return nil, err
	}
	return bigFromBytes(w), nil
}

func (d *abiData) uint64At(i int) (uint64, error) {
	v, err := d.uint(i)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("word %d overflows uint64", i)
	}
	return v.Uint64(), nil
}

func (d *abiData) boolAt(i int) (bool, error) {
	v, err := d.uint(i)
	if err != nil {
		return false, err
	}
	return v.Sign() != 0, nil
}

func (d *abiData) addressAt(i int) (string, error) {
	w, err := d.word(i)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(w[12:]), nil
}

// offsetAt reads a byte offset word and converts it to a word index
// relative to base (itself a word index).
func (d *abiData) offsetAt(i, base int) (int, error) {
	v, err := d.uint(i)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() || v.Int64()%wordSize != 0 {
		return 0, fmt.Errorf("invalid offset at word %d", i)
	}
	return base + int(v.Int64())/wordSize, nil
}

// stringAt decodes a dynamic string whose length word sits at word index i.
func (d *abiData) stringAt(i int) (string, error) {
	length, err := d.uint(i)
	if err != nil {
		return "", err
	}
	if !length.IsInt64() {
		return "", fmt.Errorf("string length overflow at word %d", i)
	}
	n := int(length.Int64())
	start := (i + 1) * wordSize
	if n < 0 || start+n > len(d.raw) {
		return "", fmt.Errorf("string truncated at word %d", i)
	}
	return string(d.raw[start : start+n]), nil
}

func bigFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// topicAddress extracts the 20-byte address from a 32-byte indexed topic.
func topicAddress(topic string) (string, bool) {
	clean := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), "0x")
	if len(clean) != 64 {
		return "", false
	}
	addr := "0x" + clean[24:]
	if !IsHexAddress(addr) {
		return "", false
	}
	return addr, true
}
