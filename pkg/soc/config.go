package soc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/etpu-project/etpu-go/pkg/accel"
	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/decoder"
	"github.com/etpu-project/etpu-go/pkg/periph"
	"github.com/etpu-project/etpu-go/pkg/region"
)

// Region names of the built-in components.
const (
	RegionROM   = "rom"
	RegionSRAM  = "sram"
	RegionLEDs  = "leds"
	RegionGPIO  = "gpio"
	RegionAccel = "wfg"
)

// Defaults for the ULX3S build.
const (
	DefaultIdent          = "Minisoc on ULX3S"
	DefaultMaxStallCycles = 1024
	DefaultLEDs           = 8
	DefaultLEDPeriod      = 1.0
	DefaultGPIOWidth      = 8
	DefaultROMSize        = 0x8000
	DefaultSRAMSize       = 0x2000
)

// RegionConfig places one region in the address map.
type RegionConfig struct {
	Origin uint64 `yaml:"origin"`
	Length uint64 `yaml:"length"`
	Type   string `yaml:"type,omitempty"`
	Mode   string `yaml:"mode,omitempty"`
	Linker bool   `yaml:"linker,omitempty"`
}

// MemoryConfig sizes an on-chip memory. Size 0 leaves the memory out.
type MemoryConfig struct {
	Size uint64 `yaml:"size"`

	// Image is a little-endian init file, relative to the config file.
	Image string `yaml:"image,omitempty"`
}

// AccelConfig configures the accelerator attachment.
type AccelConfig struct {
	// Pattern is the byte the top address byte must equal.
	Pattern uint8 `yaml:"pattern"`

	// WaitStates delays the accelerator's acknowledgment.
	WaitStates int `yaml:"wait_states"`

	// ClkFreq, when set, is the clock the accelerator requires. It must
	// equal the sys clock.
	ClkFreq float64 `yaml:"clk_freq,omitempty"`
}

// Config describes a SoC build.
type Config struct {
	Ident          string  `yaml:"ident"`
	SysClkFreq     float64 `yaml:"sys_clk_freq"`
	RefClkFreq     float64 `yaml:"ref_clk_freq"`
	ResetStages    int     `yaml:"reset_stages"`
	DefaultSlave   string  `yaml:"default_slave"`
	MaxStallCycles int     `yaml:"max_stall_cycles"`

	WithLEDChaser bool `yaml:"with_led_chaser"`
	WithGPIO      bool `yaml:"with_gpio"`
	WithAccel     bool `yaml:"with_accel"`

	LEDs      int     `yaml:"leds"`
	LEDPeriod float64 `yaml:"led_period"`
	GPIOWidth int     `yaml:"gpio_width"`

	ROM   MemoryConfig `yaml:"rom"`
	SRAM  MemoryConfig `yaml:"sram"`
	Accel AccelConfig  `yaml:"accel"`

	Regions map[string]RegionConfig `yaml:"regions"`

	baseDir string
}

// DefaultConfig returns the ULX3S build: 25 MHz reference, 10 MHz sys clock,
// ROM, SRAM, LED chaser, GPIO and the accelerator window at 0x30000000.
func DefaultConfig() Config {
	return Config{
		Ident:          DefaultIdent,
		SysClkFreq:     clock.DefaultSysFreq,
		RefClkFreq:     clock.DefaultRefFreq,
		ResetStages:    clock.DefaultResetStages,
		DefaultSlave:   decoder.PolicyError.String(),
		MaxStallCycles: DefaultMaxStallCycles,
		WithLEDChaser:  true,
		WithGPIO:       true,
		WithAccel:      true,
		LEDs:           DefaultLEDs,
		LEDPeriod:      DefaultLEDPeriod,
		GPIOWidth:      DefaultGPIOWidth,
		ROM:            MemoryConfig{Size: DefaultROMSize},
		SRAM:           MemoryConfig{Size: DefaultSRAMSize},
		Accel:          AccelConfig{Pattern: accel.ETPUSelectPattern},
		Regions: map[string]RegionConfig{
			RegionROM:   {Origin: 0x00000000, Length: DefaultROMSize, Type: "cached", Mode: "r", Linker: true},
			RegionSRAM:  {Origin: 0x10000000, Length: DefaultSRAMSize, Type: "cached", Linker: true},
			RegionAccel: {Origin: 0x30000000, Length: 0x100000, Type: "io"},
			RegionLEDs:  {Origin: 0x60000000, Length: 0x1000, Type: "io"},
			RegionGPIO:  {Origin: 0x60001000, Length: 0x1000, Type: "io"},
		},
	}
}

// LoadConfig reads a YAML config. Fields absent from the file keep their
// DefaultConfig values; a regions map in the file replaces the default map.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.baseDir = filepath.Dir(path)
	return cfg, nil
}

// ParseConfig parses YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	return DefaultConfig().Overlay(data)
}

// Overlay parses YAML over c and validates the result. Fields absent from
// data keep c's values; a regions map in data replaces c's map. c is not
// modified.
func (c Config) Overlay(data []byte) (Config, error) {
	cfg := c
	cfg.Regions = make(map[string]RegionConfig, len(c.Regions))
	for name, r := range c.Regions {
		cfg.Regions[name] = r
	}

	var probe struct {
		Regions map[string]RegionConfig `yaml:"regions"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if probe.Regions != nil {
		cfg.Regions = nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the config without building it. Address-map conflicts are
// reported by Build.
func (c Config) Validate() error {
	if c.SysClkFreq <= 0 {
		return fmt.Errorf("sys_clk_freq must be positive, got %g", c.SysClkFreq)
	}
	if c.RefClkFreq <= 0 {
		return fmt.Errorf("ref_clk_freq must be positive, got %g", c.RefClkFreq)
	}
	if c.ResetStages < 1 {
		return fmt.Errorf("reset_stages must be at least 1, got %d", c.ResetStages)
	}
	if _, err := decoder.ParsePolicy(c.DefaultSlave); err != nil {
		return fmt.Errorf("default_slave: %w", err)
	}
	if c.MaxStallCycles < 1 {
		return fmt.Errorf("max_stall_cycles must be at least 1, got %d", c.MaxStallCycles)
	}
	if c.WithLEDChaser && (c.LEDs < 1 || c.LEDs > periph.MaxLEDs) {
		return fmt.Errorf("leds must be in 1..%d, got %d", periph.MaxLEDs, c.LEDs)
	}
	if c.WithLEDChaser && c.LEDPeriod <= 0 {
		return fmt.Errorf("led_period must be positive, got %g", c.LEDPeriod)
	}
	if c.WithGPIO && (c.GPIOWidth < 1 || c.GPIOWidth > 32) {
		return fmt.Errorf("gpio_width must be in 1..32, got %d", c.GPIOWidth)
	}
	if c.Accel.WaitStates < 0 {
		return fmt.Errorf("accel wait_states must not be negative, got %d", c.Accel.WaitStates)
	}

	for _, name := range c.RegionNames() {
		rc := c.Regions[name]
		if _, err := region.ParseType(rc.Type); err != nil {
			return fmt.Errorf("region %s: %w", name, err)
		}
		if _, err := region.ParseMode(rc.Mode); err != nil {
			return fmt.Errorf("region %s: %w", name, err)
		}
	}

	for _, name := range c.components() {
		if _, ok := c.Regions[name]; !ok {
			return fmt.Errorf("%s is enabled but has no region", name)
		}
	}
	for name, mem := range map[string]MemoryConfig{RegionROM: c.ROM, RegionSRAM: c.SRAM} {
		if mem.Size == 0 {
			continue
		}
		if rc := c.Regions[name]; mem.Size > rc.Length {
			return fmt.Errorf("%s size %#x exceeds its region length %#x", name, mem.Size, rc.Length)
		}
	}
	return nil
}

// RegionNames returns the configured region names in sorted order.
func (c Config) RegionNames() []string {
	names := make([]string, 0, len(c.Regions))
	for n := range c.Regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// components returns the region names of the enabled components.
func (c Config) components() []string {
	var names []string
	if c.ROM.Size > 0 {
		names = append(names, RegionROM)
	}
	if c.SRAM.Size > 0 {
		names = append(names, RegionSRAM)
	}
	if c.WithLEDChaser {
		names = append(names, RegionLEDs)
	}
	if c.WithGPIO {
		names = append(names, RegionGPIO)
	}
	if c.WithAccel {
		names = append(names, RegionAccel)
	}
	return names
}

// regions converts the region map to validated regions.
func (c Config) regions() ([]region.Region, error) {
	out := make([]region.Region, 0, len(c.Regions))
	for _, name := range c.RegionNames() {
		rc := c.Regions[name]
		typ, err := region.ParseType(rc.Type)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", name, err)
		}
		mode, err := region.ParseMode(rc.Mode)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", name, err)
		}
		out = append(out, region.Region{
			Name:   name,
			Origin: rc.Origin,
			Length: rc.Length,
			Type:   typ,
			Mode:   mode,
			Linker: rc.Linker,
		})
	}
	return out, nil
}

func (c Config) imagePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}
