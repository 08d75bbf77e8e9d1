package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listenAddr"`
	RedisAddr  string `yaml:"redisAddr"`
	RedisDB    int    `yaml:"redisDB"`
	RedisPass  string `yaml:"redisPass"`
	MySQLDSN   string `yaml:"mysqlDSN"`
	MongoURI   string `yaml:"mongoURI"`
	JWTSecret  string `yaml:"jwtSecret"`

	// 消息存储选择：memory、mysql 或 mongodb（本地默认 memory，线上建议 mysql/mongodb）
	MessageDB string `yaml:"messageDB"`

	// 速率限制（POST /messages 发送；需要 Redis）
	SendQPS   int `yaml:"sendQPS"`
	SendBurst int `yaml:"sendBurst"`

	// 指标开关
	EnableMetrics bool `yaml:"enableMetrics"`

	// 客户端默认参数（chat-cli 使用；轮询周期默认 3s）
	BackendURL     string `yaml:"backendURL"`
	PollIntervalMS int    `yaml:"pollIntervalMS"`
}

func Load() *Config {
	// 1) 默认值
	cfg := &Config{
		ListenAddr: ":8080",
		RedisAddr:  "",
		RedisPass:  "",
		MySQLDSN:   "root:password@tcp(127.0.0.1:3306)/raya?parseTime=true&loc=Local&charset=utf8mb4",
		MongoURI:   "mongodb://127.0.0.1:27017/raya",
		JWTSecret:  "change-me-in-prod",

		MessageDB: "memory",

		SendQPS:       10,
		SendBurst:     20,
		EnableMetrics: true,

		BackendURL:     "http://127.0.0.1:8080",
		PollIntervalMS: 3000,
	}

	// 2) YAML 覆盖（如果有）
	configPath := getEnv("RAYA_CONFIG_FILE", getEnv("CONFIG_FILE", "config.yml"))
	if st, err := os.Stat(configPath); err == nil && !st.IsDir() {
		if data, err2 := os.ReadFile(configPath); err2 == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	// 3) 环境变量覆盖 YAML
	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	setStr := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setInt := func(env string, dst *int) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(env string, dst *bool) {
		if v := os.Getenv(env); v != "" {
			*dst = (v == "true" || v == "1" || v == "yes")
		}
	}

	setStr("RAYA_LISTEN_ADDR", &cfg.ListenAddr)
	setStr("RAYA_REDIS_ADDR", &cfg.RedisAddr)
	setStr("RAYA_REDIS_PASS", &cfg.RedisPass)
	setInt("RAYA_REDIS_DB", &cfg.RedisDB)
	setStr("RAYA_MYSQL_DSN", &cfg.MySQLDSN)
	setStr("RAYA_MONGO_URI", &cfg.MongoURI)
	setStr("RAYA_JWT_SECRET", &cfg.JWTSecret)

	setStr("RAYA_MESSAGE_DB", &cfg.MessageDB)

	setInt("RAYA_SEND_QPS", &cfg.SendQPS)
	setInt("RAYA_SEND_BURST", &cfg.SendBurst)
	setBool("RAYA_ENABLE_METRICS", &cfg.EnableMetrics)

	setStr("RAYA_BACKEND_URL", &cfg.BackendURL)
	setInt("RAYA_POLL_INTERVAL_MS", &cfg.PollIntervalMS)
}

// PollInterval 返回轮询周期（最小 1s，防止误配置打爆后端）。
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMS < 1000 {
		return time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
