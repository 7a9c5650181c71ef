package main

import "testing"

func TestParseSeedValid(t *testing.T) {
	p, err := parseSeed("10.0.0.5:30303:0102030405060708090a0b0c0d0e0f1011121314")
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	if p.Host != "10.0.0.5" || p.Port != 30303 {
		t.Fatalf("unexpected endpoint: %+v", p)
	}
	if p.Address[0] != 0x01 || p.Address[19] != 0x14 {
		t.Fatalf("unexpected address: %v", p.Address)
	}
}

func TestParseSeedRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"missing-parts",
		"host:not-a-port:0102030405060708090a0b0c0d0e0f1011121314",
		"host:1234:not-hex",
		"host:1234:0102", // too short
	}
	for _, c := range cases {
		if _, err := parseSeed(c); err == nil {
			t.Fatalf("expected parseSeed(%q) to fail", c)
		}
	}
}
