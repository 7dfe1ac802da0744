package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type DeadlineBackend string

const (
	DeadlineNone     DeadlineBackend = "none"
	DeadlineSQLite   DeadlineBackend = "sqlite"
	DeadlinePostgres DeadlineBackend = "postgres"
	DeadlineRedis    DeadlineBackend = "redis"
)

// DevAuthSecret signs tokens when AUTH_HMAC_SECRET is unset. Only the dev
// environment may serve with it.
const DevAuthSecret = "supersecret-dev-key"

type Config struct {
	Env   string
	Debug bool

	// attempt client
	APIURL       string        `validate:"required,url"`
	Token        string        // bearer credential
	AttemptPath  string        `validate:"required,startswith=/,contains={quizID}"`
	HTTPTimeout  time.Duration `validate:"gt=0"`
	TickInterval time.Duration `validate:"gt=0"`

	DeadlineStore DeadlineBackend `validate:"oneof=none sqlite postgres redis"`
	DBDSN         string
	RedisAddr     string `validate:"required_if=DeadlineStore redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// reference backend
	HTTPAddr    string `validate:"required"`
	AuthSecret  string `validate:"required"`
	ServerStore string `validate:"oneof=memory sqlite postgres"`
	CORSOrigins []string
	SeedFile    string

	RollbarToken string
}

// Load reads optional .env files, then the environment, and validates the
// result. Variables already set in the environment win over .env files.
func Load() (Config, error) {
	env := strings.ToLower(envOr("ENV", "dev"))
	for _, f := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, errors.Wrapf(err, "load %s", f)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "stat %s", f)
		}
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv() Config {
	env := strings.ToLower(envOr("ENV", "dev"))
	return Config{
		Env:   env,
		Debug: envBool("DEBUG", env == "dev"),

		APIURL:       envOr("QUIZ_API_URL", "http://localhost:8080"),
		Token:        os.Getenv("QUIZ_TOKEN"),
		AttemptPath:  envOr("QUIZ_ATTEMPT_PATH", "/api/user/attempt_quiz/{quizID}/attempt"),
		HTTPTimeout:  envDuration("QUIZ_HTTP_TIMEOUT", 15*time.Second),
		TickInterval: envDuration("QUIZ_TICK_INTERVAL", time.Second),

		DeadlineStore: DeadlineBackend(envOr("DEADLINE_STORE", string(DeadlineNone))),
		DBDSN:         os.Getenv("DB_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		AuthSecret:  envOr("AUTH_HMAC_SECRET", DevAuthSecret),
		ServerStore: envOr("SERVER_STORE", "memory"),
		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
		SeedFile:    os.Getenv("QUIZ_SEED_FILE"),

		RollbarToken: os.Getenv("ROLLBAR_TOKEN"),
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return errors.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// ValidateServer adds the checks that only apply to the reference backend.
func (c Config) ValidateServer() error {
	if c.Env != "dev" && c.AuthSecret == DevAuthSecret {
		return errors.Errorf("invalid config: AUTH_HMAC_SECRET must be set when ENV=%s", c.Env)
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
