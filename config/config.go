// Package config 汇总服务配置：TOML 文件提供基础值，.env 与环境变量覆盖其上。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Redis  RedisConfig  `toml:"redis"`
	Render RenderConfig `toml:"render"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type StoreConfig struct {
	SQLitePath string `toml:"sqlite_path"`
}

// RedisConfig 为空 Host 时使用进程内缓存。
type RedisConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTL      int    `toml:"ttl_seconds"`
}

type RenderConfig struct {
	PixelRatio float64 `toml:"pixel_ratio"`
	Currency   string  `toml:"currency"`
	DateLayout string  `toml:"date_layout"`
	FontDir    string  `toml:"font_dir"`
	Creator    string  `toml:"creator"`
}

// CacheTTL 返回模板缓存的过期时间。
func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Default 返回内置默认值。
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":3000"},
		Store:  StoreConfig{SQLitePath: "invoicestudio.db"},
		Redis:  RedisConfig{Port: 6379, TTL: 300},
		Render: RenderConfig{PixelRatio: 2, Creator: "invoicestudio"},
	}
}

// Load 依次应用默认值、TOML 文件（path 为空或文件不存在时跳过）、.env 与环境变量。
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("读取配置文件失败: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
			}
		}
	}
	// .env 可选，已存在的环境变量不会被覆盖
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("读取 .env 失败: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("INVOICESTUDIO_ADDR", c.Server.Addr)
	c.Store.SQLitePath = getEnv("INVOICESTUDIO_SQLITE", c.Store.SQLitePath)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvAsInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.TTL = getEnvAsInt("REDIS_TTL", c.Redis.TTL)
	c.Render.PixelRatio = getEnvAsFloat("INVOICESTUDIO_PIXEL_RATIO", c.Render.PixelRatio)
	c.Render.Currency = getEnv("INVOICESTUDIO_CURRENCY", c.Render.Currency)
	c.Render.DateLayout = getEnv("INVOICESTUDIO_DATE_LAYOUT", c.Render.DateLayout)
	c.Render.FontDir = getEnv("INVOICESTUDIO_FONT_DIR", c.Render.FontDir)
}

// Validate 检查取值范围。
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr 不能为空")
	}
	if c.Render.PixelRatio <= 0 {
		return fmt.Errorf("render.pixel_ratio 必须为正数，得到 %v", c.Render.PixelRatio)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl_seconds 不能为负数")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
