package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"artnet2fshdr/internal/schema"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARTNET2FSHDR_"

// Config структура конфигурации.
type Config struct {
	Logger   LogConf                    `toml:"logger"`   // Logger - конфигурация регистратора.
	ArtNet   ArtNetConf                 `toml:"artnet"`   // ArtNet - приём и тестовая генерация DMX.
	Device   DeviceConf                 `toml:"device"`   // Device - HTTP API устройства FS-HDR.
	MQTT     MQTTConf                   `toml:"mqtt"`     // MQTT - зеркалирование изменений в брокер.
	Metrics  MetricsConf                `toml:"metrics"`  // Metrics - HTTP сервер статуса и метрик.
	LiveEdit LiveEditConf               `toml:"liveedit"` // LiveEdit - источник данных шоу.
	Dispatch DispatchConf               `toml:"dispatch"` // Dispatch - параметры отправки.
	Schema   SchemaConf                 `toml:"schema"`   // Schema - внешний файл таблицы каналов.
	Channels []schema.ChannelDefinition `toml:"channel"`  // Channels - таблица каналов прямо в конфиге.
}

// LogConf структура конфигурации.
type LogConf struct {
	Level      string `toml:"log-level"`    // Level - уровень логирования.
	File       string `toml:"log-file"`     // File - файл журнала, пусто - только stdout.
	MaxSizeMB  int    `toml:"max-size-mb"`  // MaxSizeMB - размер файла до ротации.
	MaxBackups int    `toml:"max-backups"`  // MaxBackups - количество старых файлов.
	MaxAgeDays int    `toml:"max-age-days"` // MaxAgeDays - срок хранения старых файлов.
}

// ArtNetConf структура конфигурации.
type ArtNetConf struct {
	Listen       string   `toml:"listen"`        // Listen - адрес для приёма Art-Net.
	Network      string   `toml:"network"`       // Network - CIDR сети Art-Net, если Listen пуст.
	Port         int      `toml:"port"`          // Port - UDP порт Art-Net.
	Net          uint8    `toml:"net"`           // Net - Art-Net net (0-127).
	SubNet       uint8    `toml:"subnet"`        // SubNet - Art-Net subnet (0-15).
	Universe     uint8    `toml:"universe"`      // Universe - Art-Net universe (0-15).
	EmitRandom   bool     `toml:"emit-random"`   // EmitRandom - генерировать случайные кадры.
	EmitTarget   string   `toml:"emit-target"`   // EmitTarget - адрес получателя тестовых кадров.
	EmitInterval Duration `toml:"emit-interval"` // EmitInterval - период тестовых кадров.
	EmitChannels int      `toml:"emit-channels"` // EmitChannels - сколько каналов заполнять.
}

// DeviceConf структура конфигурации.
type DeviceConf struct {
	Host      string   `toml:"host"`       // Host - адрес FS-HDR.
	Port      string   `toml:"port"`       // Port - порт HTTP API.
	Timeout   Duration `toml:"timeout"`    // Timeout - таймаут одного запроса.
	Workers   int      `toml:"workers"`    // Workers - параллельные запросы.
	QueueSize int      `toml:"queue-size"` // QueueSize - длина очереди запросов.
}

// MQTTConf структура конфигурации.
type MQTTConf struct {
	Enabled     bool   `toml:"enabled"`      // Enabled - включить зеркалирование.
	ClientID    string `toml:"clientID"`     // ClientID - имя клиента.
	Host        string `toml:"server"`       // Host - адрес MQTT сервера.
	Port        string `toml:"port"`         // Port - порт MQTT сервера.
	User        string `toml:"user"`         // User - логин для подключения к MQTT серверу.
	Password    string `toml:"password"`     // Password - пароль для подключения к MQTT серверу.
	Qos         byte   `toml:"qos"`          // Qos - качество обслуживания.
	TopicPrefix string `toml:"topic-prefix"` // TopicPrefix - префикс топиков параметров.
}

// MetricsConf структура конфигурации.
type MetricsConf struct {
	Addr string `toml:"addr"` // Addr - адрес HTTP сервера, пусто - выключен.
}

// LiveEditConf структура конфигурации.
type LiveEditConf struct {
	URL     string   `toml:"url"`     // URL - адрес выгрузки LiveEdit, пусто - не загружать.
	Timeout Duration `toml:"timeout"` // Timeout - таймаут загрузки.
}

// DispatchConf структура конфигурации.
type DispatchConf struct {
	LogSchemaMiss bool `toml:"log-schema-miss"` // LogSchemaMiss - писать в debug каналы без описания.
}

// SchemaConf структура конфигурации.
type SchemaConf struct {
	File string `toml:"file"` // File - .toml/.yaml файл с таблицей каналов.
}

// Duration is a time.Duration decoded from strings like "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig конструктор.
func NewConfig(path string) (*Config, error) {
	// default values
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the configuration used when the file leaves keys unset.
func Default() *Config {
	return &Config{
		Logger: LogConf{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		ArtNet: ArtNetConf{
			Listen:       "0.0.0.0",
			Port:         6454,
			EmitTarget:   "127.0.0.1:6454",
			EmitInterval: Duration{2 * time.Second},
			EmitChannels: 100,
		},
		Device: DeviceConf{
			Port:      "80",
			Timeout:   Duration{2 * time.Second},
			Workers:   1,
			QueueSize: 256,
		},
		MQTT: MQTTConf{
			ClientID:    "artnet2fshdr",
			Port:        "1883",
			TopicPrefix: "fshdr",
		},
		LiveEdit: LiveEditConf{
			Timeout: Duration{10 * time.Second},
		},
	}
}

// applyDefaults restores defaults for keys the file set to zero values.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Logger.Level == "" {
		c.Logger.Level = def.Logger.Level
	}
	if c.ArtNet.Port == 0 {
		c.ArtNet.Port = def.ArtNet.Port
	}
	if c.ArtNet.EmitTarget == "" {
		c.ArtNet.EmitTarget = def.ArtNet.EmitTarget
	}
	if c.ArtNet.EmitInterval.Duration == 0 {
		c.ArtNet.EmitInterval = def.ArtNet.EmitInterval
	}
	if c.ArtNet.EmitChannels == 0 {
		c.ArtNet.EmitChannels = def.ArtNet.EmitChannels
	}
	if c.Device.Port == "" {
		c.Device.Port = def.Device.Port
	}
	if c.Device.Timeout.Duration == 0 {
		c.Device.Timeout = def.Device.Timeout
	}
	if c.Device.Workers <= 0 {
		c.Device.Workers = def.Device.Workers
	}
	if c.Device.QueueSize <= 0 {
		c.Device.QueueSize = def.Device.QueueSize
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.LiveEdit.Timeout.Duration == 0 {
		c.LiveEdit.Timeout = def.LiveEdit.Timeout
	}
}

// Validate checks the values the bridge cannot run without.
func (c *Config) Validate() error {
	if c.Device.Host == "" {
		return errors.New("device.host is required")
	}
	if c.ArtNet.Net > 127 {
		return fmt.Errorf("artnet.net must be 0-127, got %d", c.ArtNet.Net)
	}
	if c.ArtNet.SubNet > 15 {
		return fmt.Errorf("artnet.subnet must be 0-15, got %d", c.ArtNet.SubNet)
	}
	if c.ArtNet.Universe > 15 {
		return fmt.Errorf("artnet.universe must be 0-15, got %d", c.ArtNet.Universe)
	}
	if c.ArtNet.Port <= 0 || c.ArtNet.Port > 65535 {
		return fmt.Errorf("artnet.port must be 1-65535, got %d", c.ArtNet.Port)
	}
	if c.ArtNet.Network != "" {
		if _, _, err := net.ParseCIDR(c.ArtNet.Network); err != nil {
			return fmt.Errorf("artnet.network: %w", err)
		}
	}
	if c.ArtNet.EmitChannels < 0 || c.ArtNet.EmitChannels > schema.MaxChannels {
		return fmt.Errorf("artnet.emit-channels must be 0-%d, got %d", schema.MaxChannels, c.ArtNet.EmitChannels)
	}
	if c.Device.Timeout.Duration < 0 || c.ArtNet.EmitInterval.Duration < 0 || c.LiveEdit.Timeout.Duration < 0 {
		return errors.New("durations must not be negative")
	}
	if c.MQTT.Enabled && c.MQTT.Host == "" {
		return errors.New("mqtt.server is required when mqtt is enabled")
	}
	if c.MQTT.Qos > 2 {
		return fmt.Errorf("mqtt.qos must be 0-2, got %d", c.MQTT.Qos)
	}
	return nil
}

// ApplyEnv loads .env (if present) and applies ARTNET2FSHDR_* overrides.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	setUint8 := func(key string, dst *uint8) error {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = uint8(n)
		return nil
	}

	setString("LOG_LEVEL", &c.Logger.Level)
	setString("DEVICE_HOST", &c.Device.Host)
	setString("DEVICE_PORT", &c.Device.Port)
	setString("MQTT_PASSWORD", &c.MQTT.Password)
	setString("LIVEEDIT_URL", &c.LiveEdit.URL)

	if err := setUint8("ARTNET_NET", &c.ArtNet.Net); err != nil {
		return err
	}
	if err := setUint8("ARTNET_SUBNET", &c.ArtNet.SubNet); err != nil {
		return err
	}
	return setUint8("ARTNET_UNIVERSE", &c.ArtNet.Universe)
}

// LoadSchema builds the channel table: the external file wins over inline
// [[channel]] tables, which win over the built-in FS-HDR table.
func (c *Config) LoadSchema() (*schema.Schema, error) {
	switch {
	case c.Schema.File != "":
		return schema.LoadFile(c.Schema.File)
	case len(c.Channels) > 0:
		return schema.New(c.Channels)
	default:
		return schema.Default(), nil
	}
}
