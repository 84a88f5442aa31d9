package config

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	APIAddr       string `env:"API_ADDR" envDefault:":5000"`
	RedisAddr     string `env:"REDIS_ADDR,notEmpty"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	MongoURI      string `env:"MONGO_URI,notEmpty"`
	MongoDB       string `env:"MONGO_DB" envDefault:"chattyapp"`
	JWTSecret     string `env:"JWT_SECRET,notEmpty"`
	ClientURL     string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`

	CloudAPIURL string `env:"CLOUD_API_URL"`
	CloudName   string `env:"CLOUD_NAME"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"no-reply@chattyapp.dev"`

	QueueMaxAttempts   int `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	QueueBackoffSec    int `env:"QUEUE_BACKOFF_SEC" envDefault:"5"`
	WorkerConcurrency  int `env:"WORKER_CONCURRENCY" envDefault:"5"`
	MoveDueIntervalSec int `env:"MOVE_DUE_INTERVAL_SEC" envDefault:"1"`
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
