package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	User      UserConfig      `mapstructure:"user"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// StorageConfig selects one of the three store backends: "sqlite", "mongo"
// or "memory".
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MongoURI   string `mapstructure:"mongo_uri"`
	MongoDB    string `mapstructure:"mongo_db"`
}

type UserConfig struct {
	ID string `mapstructure:"id"`
}

type ProvidersConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`

	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	AniList AniListConfig `mapstructure:"anilist"`
	Books   BooksConfig   `mapstructure:"books"`
	IGDB    IGDBConfig    `mapstructure:"igdb"`
}

type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
}

type AniListConfig struct {
	URL string `mapstructure:"url"`
}

type BooksConfig struct {
	URL string `mapstructure:"url"`
}

type IGDBConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`
}

// Load reads an optional config file and merges MT_* environment variables
// over it (e.g. MT_STORAGE_DRIVER=mongo). An empty path skips the file;
// the defaults plus env are enough to boot.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo_db", "mediatrakker")
	v.SetDefault("user.id", "demo_user")
	v.SetDefault("providers.timeout", "15s")
	v.SetDefault("providers.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("providers.tmdb.image_base_url", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("providers.anilist.url", "https://graphql.anilist.co")
	v.SetDefault("providers.books.url", "https://www.googleapis.com/books/v1/volumes")
	v.SetDefault("providers.igdb.base_url", "https://api.igdb.com/v4")
	v.SetDefault("providers.igdb.token_url", "https://id.twitch.tv/oauth2/token")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
