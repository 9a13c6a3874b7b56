package chain

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
)

func TestSelectorKnownValue(t *testing.T) {
	sel := Selector("transfer(address,uint256)")
	if got := hex.EncodeToString(sel); got != "a9059cbb" {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestEventTopicKnownValue(t *testing.T) {
	topic := EventTopic("Transfer(address,address,uint256)")
	want := "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	if topic != want {
		t.Fatalf("unexpected topic: %s", topic)
	}
}

func TestEncodeCallStaticArgs(t *testing.T) {
	data := encodeCall("userExists(address)", addressArg("0x1111111111111111111111111111111111111111"))
	clean := strings.TrimPrefix(data, "0x")
	if len(clean) != 8+64 {
		t.Fatalf("unexpected calldata length: %d", len(clean))
	}
	if !strings.HasSuffix(clean, "1111111111111111111111111111111111111111") {
		t.Fatalf("address not right-aligned: %s", clean)
	}
	if !strings.Contains(clean[8:], strings.Repeat("0", 24)+"1111") {
		t.Fatalf("address word not left-padded: %s", clean)
	}
}

func TestEncodeCallDynamicString(t *testing.T) {
	data := encodeCall("registerUser(string)", stringArg("Bob"))
	clean := strings.TrimPrefix(data, "0x")
	// selector + offset word + length word + one data word
	if len(clean) != 8+3*64 {
		t.Fatalf("unexpected calldata length: %d", len(clean))
	}
	offset := clean[8 : 8+64]
	if offset != leftPadHex("20") {
		t.Fatalf("unexpected offset word: %s", offset)
	}
	length := clean[8+64 : 8+128]
	if length != leftPadHex("3") {
		t.Fatalf("unexpected length word: %s", length)
	}
	content := clean[8+128 : 8+192]
	if !strings.HasPrefix(content, hex.EncodeToString([]byte("Bob"))) {
		t.Fatalf("unexpected string content: %s", content)
	}
}

func TestEncodeCallMixedArgs(t *testing.T) {
	data := encodeCall("requestLoan(uint256,uint256,uint256,string)",
		uintArg(big.NewInt(1000)),
		uintArg(big.NewInt(5)),
		uintArg(big.NewInt(30)),
		stringArg("business expansion"),
	)
	clean := strings.TrimPrefix(data, "0x")
	// 4 head words, then length word + one data word for the 18-byte string
	if len(clean) != 8+6*64 {
		t.Fatalf("unexpected calldata length: %d", len(clean))
	}
	// string offset points past the 4-word head
	if clean[8+3*64:8+4*64] != leftPadHex("80") {
		t.Fatalf("unexpected string offset: %s", clean[8+3*64:8+4*64])
	}
}

func TestParseReturnDataRejectsGarbage(t *testing.T) {
	if _, err := parseReturnData("0xzz"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
}

func TestWordReadsOutOfRange(t *testing.T) {
	d, err := parseReturnData("0x" + leftPadHex("1"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := d.uint(1); err == nil {
		t.Fatal("expected truncation error")
	}
	if v, err := d.uint(0); err != nil || v.Int64() != 1 {
		t.Fatalf("unexpected word 0: %v %v", v, err)
	}
}

func TestTopicAddress(t *testing.T) {
	topic := leftPadHex("abcdef1234567890abcdef1234567890abcdef12")
	addr, ok := topicAddress("0x" + topic)
	if !ok {
		t.Fatal("expected topic to decode")
	}
	if addr != "0xabcdef1234567890abcdef1234567890abcdef12" {
		t.Fatalf("unexpected address: %s", addr)
	}
	if _, ok := topicAddress("0x1234"); ok {
		t.Fatal("expected short topic to fail")
	}
}

// leftPadHex pads a hex fragment to a full 64-char word.
func leftPadHex(fragment string) string {
	return strings.Repeat("0", 64-len(fragment)) + fragment
}
