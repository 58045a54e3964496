package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		SubmitRateLimit string // ulule/limiter format, e.g. "20-M"
		RedisURL        string
		TrustProxy      bool // take the client IP from X-Forwarded-For set by a private-network proxy
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool // nothing is persisted; for local demos
	}

	IntakeConfig struct {
		Timezone    string
		MaxAttempts int
	}

	FormsConfig struct {
		CacheTTL time.Duration
	}

	Config struct {
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		SecretKey       string
		FrontendBaseURL string
		WorkDir         string
		SendgridAPIKey  string
		RollbarToken    string

		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Intake   IntakeConfig
		Forms    FormsConfig
	}
)

func (c *DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultFromEmail parses the configured sender; it falls back to a bare noreply address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "SPMB")
	v.SetDefault("secretKey", "kq1-3vd)m9e!x%b2z=7w^r0h@l+5#c(p8s_yj&4g*ua6n")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "SPMB <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.submitRateLimit", "20-M")
	v.SetDefault("server.redisUrl", "")
	v.SetDefault("server.trustProxy", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "spmb")
	v.SetDefault("database.user", "spmb")
	v.SetDefault("database.password", "spmb")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("intake.timezone", "Asia/Jakarta")
	v.SetDefault("intake.maxAttempts", 10)

	v.SetDefault("forms.cacheTTL", time.Minute)
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed by the env name, e.g. `PROD_DATABASE_HOST`.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()
	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          wd,
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SubmitRateLimit: v.GetString("server.submitRateLimit"),
			RedisURL:        v.GetString("server.redisUrl"),
			TrustProxy:      v.GetBool("server.trustProxy"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		Intake: IntakeConfig{
			Timezone:    v.GetString("intake.timezone"),
			MaxAttempts: v.GetInt("intake.maxAttempts"),
		},
		Forms: FormsConfig{
			CacheTTL: v.GetDuration("forms.cacheTTL"),
		},
	}
	if conf.Intake.MaxAttempts < 1 {
		return nil, errors.Errorf("intake.maxAttempts must be >= 1 (got %d)", conf.Intake.MaxAttempts)
	}
	return conf, nil
}

// NewTestConfig returns the defaults with test mode on. It never touches the filesystem.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          v.GetString("appName"),
		SecretKey:        "secret",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			SubmitRateLimit: "1000-S",
		},
		Database: DatabaseConfig{
			Engine:     "postgres",
			Host:       os.Getenv("TEST_DATABASE_HOST"),
			Port:       "5432",
			Name:       "spmb_test",
			User:       "spmb",
			Password:   "spmb",
			DisableTLS: true,
		},
		Intake: IntakeConfig{
			Timezone:    "UTC",
			MaxAttempts: v.GetInt("intake.maxAttempts"),
		},
		Forms: FormsConfig{
			CacheTTL: v.GetDuration("forms.cacheTTL"),
		},
	}
}
