package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jaki95/dj-cue-converter/internal/convert"
	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/normalize"
	"github.com/jaki95/dj-cue-converter/internal/tagio"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Server      ServerConfig     `yaml:"server"`
	Storage     StorageConfig    `yaml:"storage"`
	Conversion  ConversionConfig `yaml:"conversion"`
	Calibration []normalize.Rule `yaml:"calibration"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StorageConfig struct {
	// Type of storage: "local" or "gcs"
	Type string `yaml:"type"`

	// Local storage options
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`
	TempDir   string `yaml:"temp_dir"`

	// GCS storage options
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ConversionConfig struct {
	Source        string `yaml:"source"`
	SourceVersion string `yaml:"source_version"`
	Target        string `yaml:"target"`
	TargetVersion string `yaml:"target_version"`

	// Anchor is the directory Serato crate paths are relative to.
	Anchor   string `yaml:"anchor"`
	Relative string `yaml:"relative"`
	// Overwrite is "never" or "always".
	Overwrite string `yaml:"overwrite"`
	// Volume is the Traktor volume name of the music drive.
	Volume string `yaml:"volume"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "output"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = os.TempDir()
	}

	if c.Conversion.Source == "" {
		c.Conversion.Source = string(domain.SoftwareSerato)
		if c.Conversion.SourceVersion == "" {
			c.Conversion.SourceVersion = "3.2.4"
		}
	}
	if c.Conversion.Target == "" {
		c.Conversion.Target = string(domain.SoftwareRekordbox)
		if c.Conversion.TargetVersion == "" {
			c.Conversion.TargetVersion = "7.1.3"
		}
	}
	if c.Conversion.Anchor == "" {
		c.Conversion.Anchor = "/"
	}
	if c.Conversion.Overwrite == "" {
		c.Conversion.Overwrite = string(tagio.OverwriteNever)
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "local":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage: gcs requires a bucket")
		}
	default:
		return fmt.Errorf("storage: unknown type %q", c.Storage.Type)
	}
	if _, err := c.Transformation(); err != nil {
		return fmt.Errorf("conversion: %w", err)
	}
	if _, err := tagio.ParseOverwrite(c.Conversion.Overwrite); err != nil {
		return fmt.Errorf("conversion: %w", err)
	}
	if err := normalize.NewCalibration(c.Calibration).Validate(); err != nil {
		return err
	}
	return nil
}

// Transformation is the default source and target of conversions.
func (c *Config) Transformation() (domain.Transformation, error) {
	src, err := SoftwareInfo(c.Conversion.Source, c.Conversion.SourceVersion)
	if err != nil {
		return domain.Transformation{}, err
	}
	dst, err := SoftwareInfo(c.Conversion.Target, c.Conversion.TargetVersion)
	if err != nil {
		return domain.Transformation{}, err
	}
	return domain.Transformation{Source: src, Target: dst}, nil
}

// SoftwareInfo parses a program name and version pair.
func SoftwareInfo(name, version string) (domain.SoftwareInfo, error) {
	sw, err := domain.ParseSoftware(name)
	if err != nil {
		return domain.SoftwareInfo{}, err
	}
	v, err := domain.ParseVersion(version)
	if err != nil {
		return domain.SoftwareInfo{}, err
	}
	return domain.SoftwareInfo{Software: sw, Version: v}, nil
}

// ConvertOptions builds converter options from the conversion settings.
// Load has already validated the overwrite policy.
func (c *Config) ConvertOptions() convert.Options {
	overwrite, _ := tagio.ParseOverwrite(c.Conversion.Overwrite)
	return convert.Options{
		Anchor:      c.Conversion.Anchor,
		Relative:    c.Conversion.Relative,
		Overwrite:   overwrite,
		Volume:      c.Conversion.Volume,
		Calibration: normalize.NewCalibration(c.Calibration),
	}
}
