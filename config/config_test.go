package config

import "testing"

func TestDefaultsAreNonZero(t *testing.T) {
	c := defaults()
	if c.TableSize != 160 || c.BucketSize != 16 || c.Alpha != 3 || c.K != 16 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.PingSeedTimeout <= 0 || c.FindPeerTimeout <= 0 || c.LookupRoundTimeout <= 0 || c.RefreshMaxAge <= 0 {
		t.Fatalf("expected all timeouts to default to a positive duration: %+v", c)
	}
}

func TestOverrideIntIgnoresInvalidValue(t *testing.T) {
	t.Setenv("P2PCORE_TEST_INT", "not-a-number")
	n := 5
	overrideInt(&n, "P2PCORE_TEST_INT")
	if n != 5 {
		t.Fatalf("expected invalid int override to be ignored, got %d", n)
	}
}

func TestOverrideIntAppliesValidValue(t *testing.T) {
	t.Setenv("P2PCORE_TEST_INT", "42")
	n := 5
	overrideInt(&n, "P2PCORE_TEST_INT")
	if n != 42 {
		t.Fatalf("expected override to apply, got %d", n)
	}
}

func TestOverrideDurationAppliesValidValue(t *testing.T) {
	t.Setenv("P2PCORE_TEST_DURATION", "10s")
	dur := defaults().PingSeedTimeout
	overrideDuration(&dur, "P2PCORE_TEST_DURATION")
	if dur.String() != "10s" {
		t.Fatalf("expected override to apply, got %v", dur)
	}
}
