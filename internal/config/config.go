// 包 config：集中读取运行配置；.env 文件可选，环境变量优先
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type PostgresOptions struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         string `env:"PORT" envDefault:"5432"`
	User         string `env:"USER" envDefault:"postgres"`
	Password     string `env:"PASSWORD"`
	DB           string `env:"DB" envDefault:"dvhc"`
	SSLMode      string `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"25"`
}

// DSN：拼接 lib/pq 可用的连接串
func (o PostgresOptions) DSN() string {
	dsn := "postgres://" + o.User
	if o.Password != "" {
		dsn += ":" + o.Password
	}
	dsn += "@" + o.Host + ":" + o.Port + "/" + o.DB + "?sslmode=" + o.SSLMode
	return dsn
}

type RedisOptions struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Host    string `env:"HOST" envDefault:"127.0.0.1"`
	Port    string `env:"PORT" envDefault:"6379"`
	Pass    string `env:"PASS"`
	DB      int    `env:"DB" envDefault:"0"`
}

func (o RedisOptions) Addr() string { return o.Host + ":" + o.Port }

type TLSOptions struct {
	Enable   bool   `env:"ENABLE" envDefault:"false"`
	CertPath string `env:"CERT_PATH" envDefault:"data/certs/server.crt"`
	KeyPath  string `env:"KEY_PATH" envDefault:"data/certs/server.key"`
	// 可选：HTTP 端口 301 跳转到 HTTPS
	Redirect     bool   `env:"REDIRECT_ENABLE" envDefault:"false"`
	RedirectAddr string `env:"REDIRECT_ADDR" envDefault:":80"`
}

type RateLimitOptions struct {
	Enabled bool `env:"ENABLED" envDefault:"false"`
	QPS     int  `env:"QPS" envDefault:"200"`
}

// ImportOptions：数据集导入（启动导入与每周刷新）
type ImportOptions struct {
	SourceURL string `env:"SOURCE_URL"`
	OnStart   bool   `env:"ON_START" envDefault:"false"`
	Weekly    bool   `env:"WEEKLY" envDefault:"false"`
	Hour      int    `env:"HOUR" envDefault:"3"`
	BatchSize int    `env:"BATCH_SIZE" envDefault:"5000"`
}

type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	APIBase         string        `env:"API_BASE" envDefault:"/api"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
	RootLevel       string        `env:"TREE_ROOT_LEVEL" envDefault:"province"`
	TreeCacheTTL    time.Duration `env:"TREE_CACHE_TTL" envDefault:"10m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	Postgres  PostgresOptions  `envPrefix:"PG_"`
	Redis     RedisOptions     `envPrefix:"REDIS_"`
	TLS       TLSOptions       `envPrefix:"TLS_"`
	RateLimit RateLimitOptions `envPrefix:"RATE_LIMIT_"`
	Import    ImportOptions    `envPrefix:"IMPORT_"`
}

// DefaultEnvFiles：按顺序尝试加载的 .env 文件
var DefaultEnvFiles = []string{".env", "data/env/.env"}

// Load：加载存在的 .env 文件后解析环境变量
// 约束：godotenv 不覆盖已存在的环境变量；缺失的文件静默跳过
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, errors.Wrap(err, "load env files")
		}
	}
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	c.APIBase = "/" + strings.Trim(c.APIBase, "/")
	if c.APIBase == "/" {
		c.APIBase = ""
	}
	if c.Import.BatchSize <= 0 {
		c.Import.BatchSize = 5000
	}
	return c, nil
}
