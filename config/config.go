package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	World   WorldConfig   `mapstructure:"world"`
	Journal JournalConfig `mapstructure:"journal"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	StaticDir      string `mapstructure:"static_dir"`
	SendQueue      int    `mapstructure:"send_queue"`
}

type WorldConfig struct {
	HalfExtent  int     `mapstructure:"half_extent"`
	StoneChance float64 `mapstructure:"stone_chance"`
	Seed        int64   `mapstructure:"seed"` // 0 picks a time-based seed
}

type JournalConfig struct {
	Dir string `mapstructure:"dir"` // empty disables the event journal
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":3000")
	viper.SetDefault("server.rpc_address", ":3001")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("server.static_dir", "public")
	viper.SetDefault("server.send_queue", 256)
	viper.SetDefault("world.half_extent", 40)
	viper.SetDefault("world.stone_chance", 0.02)
	viper.SetDefault("world.seed", 0)
	viper.SetDefault("journal.dir", "")

	viper.AutomaticEnv()

	// A missing config file is fine, the defaults above stand on their own.
	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
