package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	BotUsername   string `mapstructure:"BOT_USERNAME"`
	DBDSN         string `mapstructure:"DB_DSN"`
	Environment   string `mapstructure:"ENV"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	HTTPAddr      string `mapstructure:"HTTP_ADDR"`

	AdminChatIDs   []int64 `mapstructure:"TELEGRAM_ADMIN_CHAT_IDS"`
	StudioRules    string  `mapstructure:"STUDIO_RULES"`
	PaymentDetails string  `mapstructure:"PAYMENT_DETAILS"`

	Location  *time.Location `mapstructure:"STUDIO_TIMEZONE"`
	WorkStart int            `mapstructure:"WORK_START_HOUR"`
	WorkEnd   int            `mapstructure:"WORK_END_HOUR"`

	Prices Prices

	ConversationTTL time.Duration `mapstructure:"CONVERSATION_TTL"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`

	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	AMQPURL   string `mapstructure:"AMQP_URL"`
	AMQPQueue string `mapstructure:"AMQP_QUEUE"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

// Prices тариф в гривнах
type Prices struct {
	Base            int `mapstructure:"PRICE_BASE"`
	PerExtraPerson  int `mapstructure:"PRICE_PER_EXTRA_PERSON"`
	ZoneBoth        int `mapstructure:"PRICE_ZONE_BOTH"`
	PerExtraAnimal  int `mapstructure:"PRICE_PER_EXTRA_ANIMAL"`
	BackgroundExtra int `mapstructure:"PRICE_BACKGROUND"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

// FromEnv собирает конфиг из произвольного источника переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		TelegramToken:      getenv("TELEGRAM_TOKEN"),
		BotUsername:        strings.TrimPrefix(getenv("BOT_USERNAME"), "@"),
		DBDSN:              getenv("DB_DSN"),
		Environment:        p.str("ENV", "development"),
		StorageDriver:      p.str("STORAGE_DRIVER", StorageDriverPostgres),
		HTTPAddr:           p.str("HTTP_ADDR", ":8000"),
		AdminChatIDs:       p.ids("TELEGRAM_ADMIN_CHAT_IDS"),
		StudioRules:        getenv("STUDIO_RULES"),
		PaymentDetails:     getenv("PAYMENT_DETAILS"),
		Location:           p.location("STUDIO_TIMEZONE", "Europe/Kyiv"),
		WorkStart:          p.integer("WORK_START_HOUR", 9),
		WorkEnd:            p.integer("WORK_END_HOUR", 20),
		ConversationTTL:    p.duration("CONVERSATION_TTL", 24*time.Hour),
		JWTSecret:          getenv("JWT_SECRET"),
		AdminPasswordHash:  getenv("ADMIN_PASSWORD_HASH"),
		RedisAddr:          getenv("REDIS_ADDR"),
		RedisPassword:      getenv("REDIS_PASSWORD"),
		RateLimitPerMinute: p.integer("RATE_LIMIT_PER_MINUTE", 30),
		AMQPURL:            getenv("AMQP_URL"),
		AMQPQueue:          p.str("AMQP_QUEUE", "studio.booking.events"),
		MetricsEnabled:     p.boolean("METRICS_ENABLED", true),
		Prices: Prices{
			Base:            p.integer("PRICE_BASE", 1000),
			PerExtraPerson:  p.integer("PRICE_PER_EXTRA_PERSON", 100),
			ZoneBoth:        p.integer("PRICE_ZONE_BOTH", 300),
			PerExtraAnimal:  p.integer("PRICE_PER_EXTRA_ANIMAL", 100),
			BackgroundExtra: p.integer("PRICE_BACKGROUND", 200),
		},
	}

	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		// Проверяем обязательные поля
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.StorageDriver)
	}

	if c.WorkStart < 0 || c.WorkEnd > 23 || c.WorkStart > c.WorkEnd {
		return fmt.Errorf("invalid working window %d..%d", c.WorkStart, c.WorkEnd)
	}

	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}

	if c.ConversationTTL <= 0 {
		return fmt.Errorf("CONVERSATION_TTL must be positive, got %s", c.ConversationTTL)
	}

	for name, v := range map[string]int{
		"PRICE_BASE":             c.Prices.Base,
		"PRICE_PER_EXTRA_PERSON": c.Prices.PerExtraPerson,
		"PRICE_ZONE_BOTH":        c.Prices.ZoneBoth,
		"PRICE_PER_EXTRA_ANIMAL": c.Prices.PerExtraAnimal,
		"PRICE_BACKGROUND":       c.Prices.BackgroundExtra,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}

	return nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// AdminAuthEnabled вход администратора через API настроен
func (c *Config) AdminAuthEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}

// parser запоминает первую ошибку разбора
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) location(key, def string) *time.Location {
	name := p.str(key, def)
	loc, err := time.LoadLocation(name)
	if err != nil {
		p.fail(key, name, err)
		return time.UTC
	}
	return loc
}

// ids список через запятую: "123, 456"
func (p *parser) ids(key string) []int64 {
	raw := p.getenv(key)
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			p.fail(key, raw, err)
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}
