package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
)

type Log struct {
	Level  string `config:"level"`
	Format string `config:"format"`
}

type Collections struct {
	Items     string `config:"items"`
	Sequences string `config:"sequences"`
	Students  string `config:"students"`
}

type Mongo struct {
	URI            string      `config:"uri"`
	Database       string      `config:"database"`
	Collections    Collections `config:"collections"`
	ConnectTimeout string      `config:"connect_timeout"`
}

type Broker struct {
	URL   string `config:"url"`
	Topic string `config:"topic"`
	Name  string `config:"name"`
}

type RateLimit struct {
	RPS   float64 `config:"rps"`
	Burst int     `config:"burst"`
}

type Cors struct {
	AllowedOrigins []string `config:"allowed_origins"`
}

type Config struct {
	Addr      string    `config:"addr"`
	Log       Log       `config:"log"`
	Mongo     Mongo     `config:"mongo"`
	JwksURL   string    `config:"jwks_url"`
	Broker    Broker    `config:"broker"`
	RateLimit RateLimit `config:"rate_limit"`
	Cors      Cors      `config:"cors"`
}

func defaultConfig() Config {
	return Config{
		Addr: ":3000",
		Log: Log{
			Level:  "INFO",
			Format: "console",
		},
		Mongo: Mongo{
			URI:      "mongodb://localhost:27017",
			Database: "todo-api",
			Collections: Collections{
				Items:     "todo-items",
				Sequences: "sequences",
				Students:  "students",
			},
			ConnectTimeout: "10s",
		},
		Cors: Cors{
			AllowedOrigins: []string{"*"},
		},
	}
}

// NewConfig reads path and its .local.yml sibling on top of the defaults.
// Both files are optional. PORT, when set, wins over addr.
func NewConfig(path string) (*Config, error) {
	appConfig := defaultConfig()

	c := config.NewWithOptions("todo", func(opt *config.Options) {
		opt.ParseEnv = true
		opt.DecoderConfig.TagName = "config"
	})

	c.AddDriver(yaml.Driver)

	if path != "" {
		if err := c.LoadExists(path); err != nil {
			return nil, err
		}

		if err := c.LoadExists(strings.Replace(path, ".yml", ".local.yml", 1)); err != nil {
			return nil, err
		}
	}

	if len(c.Data()) > 0 {
		if err := c.BindStruct("", &appConfig); err != nil {
			return nil, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		appConfig.Addr = ":" + port
	}

	if _, err := appConfig.Mongo.Timeout(); err != nil {
		return nil, err
	}

	return &appConfig, nil
}

func (m Mongo) Timeout() (time.Duration, error) {
	if m.ConnectTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(m.ConnectTimeout)
	if err != nil {
		return 0, fmt.Errorf("mongo.connect_timeout: %w", err)
	}

	return d, nil
}
