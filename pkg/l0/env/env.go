// Package env sets up a protocol engine and its link from flags,
// environment variables and an optional config file.
package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/uart"
)

// Config provides common options to setup a link.
type Config struct {
	// Device is the serial device, e.g. /dev/ttyUSB0.
	Device      string
	Baud        int
	ReadTimeout time.Duration

	// Checksum names the frame checksum, see comm.ChecksumByName.
	Checksum     string
	RingCapacity int
	SendTimeout  time.Duration

	// RobotID identifies the robot in topics and service names.
	RobotID string

	// MQTTBrokerURL e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// MetricsAddr is the listen address of /metrics, empty disables it.
	MetricsAddr string

	// File is the TOML config file.
	File string
}

var defaultConfig = Config{
	Device:        "/dev/ttyUSB0",
	Baud:          57600,
	ReadTimeout:   100 * time.Millisecond,
	Checksum:      comm.CRCCCITT.Name(),
	RingCapacity:  comm.DefaultRingCapacity,
	SendTimeout:   time.Second,
	MQTTBrokerURL: "mqtt://localhost:1883/polylink/",
}

func init() {
	if val := os.Getenv("POLYLINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val, err := strconv.Atoi(os.Getenv("POLYLINK_BAUD")); err == nil {
		defaultConfig.Baud = val
	}
	if val := os.Getenv("POLYLINK_CHECKSUM"); val != "" {
		defaultConfig.Checksum = val
	}
	if val := os.Getenv("POLYLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("POLYLINK_METRICS_ADDR"); val != "" {
		defaultConfig.MetricsAddr = val
	}
	if val := os.Getenv("POLYLINK_CONFIG"); val != "" {
		defaultConfig.File = val
	}
	if val := os.Getenv("POLYLINK_ROBOT_ID"); val != "" {
		defaultConfig.RobotID = val
	} else {
		defaultConfig.RobotID = MachineID()
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "dev", defaultConfig.Device, "Serial device")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout")
	flag.StringVar(&defaultConfig.Checksum, "checksum", defaultConfig.Checksum, "Frame checksum: crc-ccitt, crc-ccitt-reflected, xor")
	flag.IntVar(&defaultConfig.RingCapacity, "ring", defaultConfig.RingCapacity, "Receive ring capacity")
	flag.DurationVar(&defaultConfig.SendTimeout, "send-timeout", defaultConfig.SendTimeout, "Max wait for the previous frame, 0 waits forever")
	flag.StringVar(&defaultConfig.RobotID, "robot-id", defaultConfig.RobotID, "Robot ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Metrics listen address")
	flag.StringVar(&defaultConfig.File, "config", defaultConfig.File, "Config file (TOML)")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations. Settings in
// Config.File are applied unless overridden on command line.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if conf.File != "" {
		if err := conf.LoadFile(conf.File, explicitFlags()); err != nil {
			return nil, err
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// MustNewConfig creates a Config and fails on error.
func MustNewConfig() *Config {
	conf, err := NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

type fileConfig struct {
	Device        string `toml:"device"`
	Baud          int    `toml:"baud"`
	ReadTimeout   string `toml:"read_timeout"`
	Checksum      string `toml:"checksum"`
	RingCapacity  int    `toml:"ring_capacity"`
	SendTimeout   string `toml:"send_timeout"`
	RobotID       string `toml:"robot_id"`
	MQTTBrokerURL string `toml:"mqtt_url"`
	MetricsAddr   string `toml:"metrics_addr"`
}

// LoadFile applies settings defined in a TOML file, except those whose
// flag name is in skip.
func (c *Config) LoadFile(path string, skip map[string]bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defined := func(key, flagName string) bool {
		return meta.IsDefined(key) && !skip[flagName]
	}
	if defined("device", "dev") {
		c.Device = strings.TrimSpace(raw.Device)
	}
	if defined("baud", "baud") {
		c.Baud = raw.Baud
	}
	if defined("read_timeout", "read-timeout") {
		if c.ReadTimeout, err = time.ParseDuration(strings.TrimSpace(raw.ReadTimeout)); err != nil {
			return fmt.Errorf("parse read_timeout: %w", err)
		}
	}
	if defined("checksum", "checksum") {
		c.Checksum = strings.TrimSpace(raw.Checksum)
	}
	if defined("ring_capacity", "ring") {
		c.RingCapacity = raw.RingCapacity
	}
	if defined("send_timeout", "send-timeout") {
		if c.SendTimeout, err = time.ParseDuration(strings.TrimSpace(raw.SendTimeout)); err != nil {
			return fmt.Errorf("parse send_timeout: %w", err)
		}
	}
	if defined("robot_id", "robot-id") {
		c.RobotID = strings.TrimSpace(raw.RobotID)
	}
	if defined("mqtt_url", "mqtt") {
		c.MQTTBrokerURL = strings.TrimSpace(raw.MQTTBrokerURL)
	}
	if defined("metrics_addr", "metrics") {
		c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	return nil
}

func explicitFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// Validate checks the config.
func (c *Config) Validate() error {
	if _, err := comm.ChecksumByName(c.Checksum); err != nil {
		return fmt.Errorf("checksum: %w", err)
	}
	if c.RingCapacity < comm.MinRingCapacity {
		return fmt.Errorf("ring capacity %d less than %d", c.RingCapacity, comm.MinRingCapacity)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.SendTimeout < 0 {
		return fmt.Errorf("negative send timeout %s", c.SendTimeout)
	}
	return nil
}

// NewEngine creates an unattached engine.
func (c *Config) NewEngine() (*comm.Engine, error) {
	cs, err := comm.ChecksumByName(c.Checksum)
	if err != nil {
		return nil, err
	}
	e, err := comm.NewEngine(c.RingCapacity)
	if err != nil {
		return nil, err
	}
	e.Checksum, e.SendTimeout = cs, c.SendTimeout
	return e, nil
}

// MustNewEngine creates an engine and fails on error.
func (c *Config) MustNewEngine() *comm.Engine {
	e, err := c.NewEngine()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// OpenLink opens the serial device.
func (c *Config) OpenLink() (*uart.Link, error) {
	port, err := uart.OpenSerial(c.Device, c.Baud, c.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Device, err)
	}
	return uart.New(port), nil
}

// Connect creates an engine attached to the serial link.
func (c *Config) Connect() (*comm.Engine, *uart.Link, error) {
	e, err := c.NewEngine()
	if err != nil {
		return nil, nil, err
	}
	link, err := c.OpenLink()
	if err != nil {
		return nil, nil, err
	}
	e.Attach(link)
	return e, link, nil
}

// MustConnect connects and fails on error.
func (c *Config) MustConnect() (*comm.Engine, *uart.Link) {
	e, link, err := c.Connect()
	if err != nil {
		log.Fatalln(err)
	}
	return e, link
}
