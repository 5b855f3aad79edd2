package config

import "testing"

func validConfig() RunConfig {
	return RunConfig{
		SharePop:    0.5,
		NAgents:     100,
		NDays:       1,
		RoutingMode: RoutingBeeline,
		ModeChoice:  ModeChoiceNone,
		OutPath:     "out.json",
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}
}

func TestValidateRejectsSharePopOutOfRange(t *testing.T) {
	c := validConfig()
	c.SharePop = 1.5
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for share_pop > 1")
	}
}

func TestValidateRejectsUnimplementedOutputFormats(t *testing.T) {
	for _, ext := range []string{".xml", ".db"} {
		c := validConfig()
		c.OutPath = "out" + ext
		if err := c.Validate(); err == nil {
			t.Errorf("expected %q output to be rejected as not implemented", ext)
		}
	}
}

func TestValidateRejectsUnknownRoutingMode(t *testing.T) {
	c := validConfig()
	c.RoutingMode = "NOT_A_MODE"
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognized routing mode")
	}
}

func TestParseModeSpeedUp(t *testing.T) {
	m, err := ParseModeSpeedUp(nil, "CAR_DRIVER=1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 1 {
		t.Fatalf("expected one entry, got %d", len(m))
	}

	_, err = ParseModeSpeedUp(nil, "CAR_DRIVER")
	if err == nil {
		t.Fatal("expected an error for a malformed MODE=f value")
	}

	_, err = ParseModeSpeedUp(nil, "NotAMode=1.5")
	if err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}
