package config

import (
	"testing"

	"github.com/hsoundplane/soundplane/internal/distributor"
)

// helper to build a master config quickly
func master(addrs ...uint16) *Config {
	cfg := &Config{
		Master: MasterConfig{
			Serial: SerialConfig{Port: "/dev/ttyACM0"},
		},
	}
	for i, a := range addrs {
		cfg.Master.Slaves = append(cfg.Master.Slaves, SlaveConfig{
			Address:       a,
			SwitchAddress: 0x70 + uint16(i),
		})
	}
	return cfg
}

// ---- tests ----

func TestValidate_MinimalAccepted(t *testing.T) {
	if err := Validate(master(0x50, 0x51, 0x52, 0x53)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PortRequired(t *testing.T) {
	cfg := master(0x50)
	cfg.Master.Serial.Port = ""

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestValidate_TooManySlaves(t *testing.T) {
	if err := Validate(master(0x50, 0x51, 0x52, 0x53, 0x54)); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestValidate_DuplicateAddress(t *testing.T) {
	if err := Validate(master(0x50, 0x50)); err == nil {
		t.Fatalf("expected duplicate address error, got nil")
	}
}

func TestValidate_DuplicateSwitch(t *testing.T) {
	cfg := master(0x50, 0x51)
	cfg.Master.Slaves[1].SwitchAddress = 0x70

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate switch error, got nil")
	}
}

func TestValidate_SwitchOutOfRange(t *testing.T) {
	cfg := master(0x50)
	cfg.Master.Slaves[0].SwitchAddress = 0x78

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected switch range error, got nil")
	}
}

func TestValidate_ThresholdCollidesWithColumns(t *testing.T) {
	cfg := master(0x50, 0x51, 0x52, 0x53)
	cfg.Master.Layout.CommandThreshold = 20 // 32 columns

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected threshold error, got nil")
	}
}

func TestValidate_ColumnsExceedChain(t *testing.T) {
	cfg := master(0x50)
	cfg.Master.Layout.ColumnsPerSlave = 8
	cfg.Master.Layout.PiezosPerSlave = 45

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected chain width error, got nil")
	}
}

func TestValidate_NineRowsNeedFewerColumns(t *testing.T) {
	cfg := master(0x50)
	cfg.Master.Layout.ColumnsPerSlave = 8
	cfg.Master.Layout.RowsPerColumn = 9

	// column 7 row 8 lands on contact 79 of 72
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected geometry error, got nil")
	}

	cfg.Master.Layout.ColumnsPerSlave = 7
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_AcceptedLayoutsAddressEveryCoordinate(t *testing.T) {
	for cps := 1; cps <= 8; cps++ {
		for _, rows := range []int{5, 9} {
			for _, piezos := range []int{45, 72} {
				cfg := master(0x50, 0x51)
				cfg.Master.Layout.ColumnsPerSlave = cps
				cfg.Master.Layout.RowsPerColumn = rows
				cfg.Master.Layout.PiezosPerSlave = piezos
				if Validate(cfg) != nil {
					continue
				}
				l := distributor.Layout{Slaves: 2, ColumnsPerSlave: cps, RowsPerColumn: rows, PiezosPerSlave: piezos}
				for c := 0; c < l.Columns(); c++ {
					for r := 0; r < rows; r++ {
						if _, _, err := l.Locate(uint8(c), uint8(r)); err != nil {
							t.Fatalf("%dx%d on %d contacts accepted but (%d,%d) fails: %v", cps, rows, piezos, c, r, err)
						}
					}
				}
			}
		}
	}
}

func TestValidate_ThresholdMustExceedMaxPairs(t *testing.T) {
	cfg := master(0x50)
	cfg.Master.Layout.CommandThreshold = 40
	cfg.Master.Layout.MaxCoordPairs = 64

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected threshold error, got nil")
	}

	// default threshold 200 against 127 pairs is fine
	cfg.Master.Layout.CommandThreshold = 0
	cfg.Master.Layout.MaxCoordPairs = 127
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Master.Layout.CommandThreshold = 16
	cfg.Master.Layout.MaxCoordPairs = 0 // default 16
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected threshold equal to max pairs to be rejected")
	}
}

func TestValidate_BadFraming(t *testing.T) {
	cfg := master(0x50)
	cfg.Master.Serial.Framing = "lines"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected framing error, got nil")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := master(0x50)
	cfg.Status = &StatusConfig{Endpoint: "127.0.0.1:502", DeviceName: "SOUNDPLANE-MASTER-01"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	l := cfg.Master.Layout
	if l.ColumnsPerSlave != 8 || l.RowsPerColumn != 5 || l.PiezosPerSlave != 72 || l.MaxCoordPairs != 16 {
		t.Fatalf("unexpected layout defaults: %+v", l)
	}
	if l.CommandThreshold != 200 {
		t.Fatalf("unexpected threshold %d", l.CommandThreshold)
	}
	if cfg.Master.Serial.Framing != "marked" || cfg.Master.Serial.Baud != 115200 {
		t.Fatalf("unexpected serial defaults: %+v", cfg.Master.Serial)
	}
	if cfg.Master.Setup.Reset == nil || !*cfg.Master.Setup.Reset {
		t.Fatalf("reset should default to true")
	}
	if len(cfg.Status.DeviceName) != 16 {
		t.Fatalf("device name not truncated: %q", cfg.Status.DeviceName)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("normalized config must still validate: %v", err)
	}
}

func TestParse_YAML(t *testing.T) {
	raw := []byte(`
master:
  serial:
    port: /dev/ttyACM0
    framing: counted
  layout:
    columns_per_slave: 8
  slaves:
    - address: 0x50
      switch_address: 0x70
    - address: 0x51
      switch_address: 0x71
  setup:
    gain: 3
    retries: 2
status:
  endpoint: 127.0.0.1:502
  unit_id: 1
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if len(cfg.Master.Slaves) != 2 || cfg.Master.Slaves[1].Address != 0x51 {
		t.Fatalf("unexpected slaves %+v", cfg.Master.Slaves)
	}
	if cfg.Master.Setup.Gain != 3 || cfg.Master.Setup.Retries != 2 {
		t.Fatalf("unexpected setup %+v", cfg.Master.Setup)
	}
	if cfg.Status == nil || cfg.Status.UnitID != 1 {
		t.Fatalf("status not parsed: %+v", cfg.Status)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	if _, err := Parse([]byte("master:\n  serail:\n    port: x\n")); err == nil {
		t.Fatalf("expected unknown key error, got nil")
	}
}
