// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Master MasterConfig  `yaml:"master"`
	Status *StatusConfig `yaml:"status"` // optional Modbus status export
}

// ---- MASTER ----

type MasterConfig struct {
	Serial        SerialConfig    `yaml:"serial"`
	I2C           I2CConfig       `yaml:"i2c"`
	Layout        LayoutConfig    `yaml:"layout"`
	Slaves        []SlaveConfig   `yaml:"slaves"`
	Setup         SetupConfig     `yaml:"setup"`
	Indicator     IndicatorConfig `yaml:"indicator"`
	Debug         bool            `yaml:"debug"`
	StartupWaitMs int             `yaml:"startup_wait_ms"`
}

// ---- HOST LINK ----

type SerialConfig struct {
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	TimeoutMs int    `yaml:"timeout_ms"` // inter-byte timeout, ends a short frame
	Framing   string `yaml:"framing"`    // counted | marked
}

// ---- SLAVE BUS ----

type I2CConfig struct {
	Bus      string `yaml:"bus"` // periph bus name, "" = first bus
	FastMode bool   `yaml:"fast_mode"`
}

// ---- GEOMETRY ----

type LayoutConfig struct {
	ColumnsPerSlave  int `yaml:"columns_per_slave"`
	RowsPerColumn    int `yaml:"rows_per_column"`
	PiezosPerSlave   int `yaml:"piezos_per_slave"`
	MaxCoordPairs    int `yaml:"max_coord_pairs"`
	CommandThreshold int `yaml:"command_threshold"`
}

type SlaveConfig struct {
	Address       uint16 `yaml:"address"`
	SwitchAddress uint16 `yaml:"switch_address"`
}

// ---- DRIVER SETUP ----

type SetupConfig struct {
	Gain    uint8  `yaml:"gain"`
	Reset   *bool  `yaml:"reset"` // default true
	Retries int    `yaml:"retries"`
	Mode    string `yaml:"mode"` // master | slave
}

type IndicatorConfig struct {
	SetupPin string `yaml:"setup_pin"` // periph gpio name, "" = none
}

// ---- STATUS EXPORT ----

type StatusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	Slot       uint16 `yaml:"slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// Load reads a YAML configuration file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML configuration bytes.
func Parse(raw []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
