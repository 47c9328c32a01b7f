package models

import (
	"strings"
	"testing"
)

func TestDefaultParams_Valid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams().Validate() = %v", err)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr string
	}{
		{"negative S2E", func(p *Params) { p.S2E = -0.1 }, "S2E"},
		{"I2D above one", func(p *Params) { p.I2D = 1.5 }, "I2D"},
		{"negative tau", func(p *Params) { p.S2ETau = -1 }, "S2E_TAU"},
		{"tau above one is fine", func(p *Params) { p.S2ETau = 3 }, ""},
		{"boundaries", func(p *Params) { p.E2I = 0; p.E2R = 1 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestParseParams_MissingKeysUseBase(t *testing.T) {
	p, err := ParseParams([]byte(`{"S2E": 0.4, "S2E_TAU": 0.01}`), DefaultParams())
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if p.S2E != 0.4 {
		t.Errorf("S2E = %v, want 0.4", p.S2E)
	}
	if p.S2ETau != 0.01 {
		t.Errorf("S2ETau = %v, want 0.01", p.S2ETau)
	}
	if p.I2R != DefaultParams().I2R {
		t.Errorf("I2R = %v, want default %v", p.I2R, DefaultParams().I2R)
	}
}

func TestParseParams_Empty(t *testing.T) {
	p, err := ParseParams(nil, DefaultParams())
	if err != nil {
		t.Fatalf("ParseParams(nil): %v", err)
	}
	if p != DefaultParams() {
		t.Errorf("ParseParams(nil) = %+v, want defaults", p)
	}
}

func TestParseParams_Invalid(t *testing.T) {
	if _, err := ParseParams([]byte(`{"E2I": 2}`), DefaultParams()); err == nil {
		t.Error("expected error for E2I=2")
	}
	if _, err := ParseParams([]byte(`{"E2I": "x"}`), DefaultParams()); err == nil {
		t.Error("expected error for non-numeric E2I")
	}
}
