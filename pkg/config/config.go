package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Planning PlanningConfig
	Travel   TravelConfig
	Cache    CacheConfig
	Export   ExportConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlanningConfig carries the business constants of the schedule generator.
type PlanningConfig struct {
	CourseDuration   time.Duration
	InterSiteTravel  time.Duration
	SameSiteTravel   time.Duration
	GroupSizeMin     int
	GroupSizeMax     int
	EditSafetyMargin time.Duration
	// SafetyMargin is read from PLANNING_SAFETY_MARGIN and exposed for operators only.
	// Nothing in the generator or the mutability checks consumes it.
	SafetyMargin     time.Duration
	MaxExecutionTime time.Duration
	MaxCoursesPerDay int
	DefaultTimezone  string
}

// TravelConfig controls when deplacements are rebuilt outside explicit requests.
type TravelConfig struct {
	RebuildCron            string
	RebuildAfterGeneration bool
	WorkerRetries          int
}

// CacheConfig governs caching of group planning views.
type CacheConfig struct {
	Enabled     bool
	PlanningTTL time.Duration
}

// ExportConfig shapes rendered timetables.
type ExportConfig struct {
	CSVDelimiter      string
	CalendarProductID string
	XLSXSheet         string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Planning = PlanningConfig{
		CourseDuration:   minutes(v.GetInt("PLANNING_COURSE_DURATION"), 60),
		InterSiteTravel:  minutes(v.GetInt("PLANNING_INTER_SITE_TRAVEL"), 60),
		SameSiteTravel:   minutes(v.GetInt("PLANNING_SAME_SITE_TRAVEL"), 5),
		GroupSizeMin:     v.GetInt("PLANNING_GROUP_SIZE_MIN"),
		GroupSizeMax:     v.GetInt("PLANNING_GROUP_SIZE_MAX"),
		EditSafetyMargin: minutes(v.GetInt("PLANNING_EDIT_SAFETY_MARGIN"), 30),
		SafetyMargin:     minutes(v.GetInt("PLANNING_SAFETY_MARGIN"), 15),
		MaxExecutionTime: parseDuration(v.GetString("PLANNING_MAX_EXECUTION_TIME"), 5*time.Minute),
		MaxCoursesPerDay: v.GetInt("PLANNING_MAX_COURSES_PER_DAY"),
		DefaultTimezone:  v.GetString("PLANNING_DEFAULT_TIMEZONE"),
	}

	cfg.Travel = TravelConfig{
		RebuildCron:            v.GetString("TRAVEL_REBUILD_CRON"),
		RebuildAfterGeneration: v.GetBool("TRAVEL_REBUILD_AFTER_GENERATION"),
		WorkerRetries:          v.GetInt("TRAVEL_WORKER_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_PLANNING_CACHE"),
		PlanningTTL: parseDuration(v.GetString("PLANNING_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Export = ExportConfig{
		CSVDelimiter:      v.GetString("EXPORT_CSV_DELIMITER"),
		CalendarProductID: v.GetString("EXPORT_CALENDAR_PRODUCT_ID"),
		XLSXSheet:         v.GetString("EXPORT_XLSX_SHEET"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PLANNING_COURSE_DURATION", 60)
	v.SetDefault("PLANNING_INTER_SITE_TRAVEL", 60)
	v.SetDefault("PLANNING_SAME_SITE_TRAVEL", 5)
	v.SetDefault("PLANNING_GROUP_SIZE_MIN", 20)
	v.SetDefault("PLANNING_GROUP_SIZE_MAX", 40)
	v.SetDefault("PLANNING_EDIT_SAFETY_MARGIN", 30)
	v.SetDefault("PLANNING_SAFETY_MARGIN", 15)
	v.SetDefault("PLANNING_MAX_EXECUTION_TIME", "5m")
	v.SetDefault("PLANNING_MAX_COURSES_PER_DAY", 6)
	v.SetDefault("PLANNING_DEFAULT_TIMEZONE", "Europe/Brussels")

	v.SetDefault("TRAVEL_REBUILD_CRON", "")
	v.SetDefault("TRAVEL_REBUILD_AFTER_GENERATION", true)
	v.SetDefault("TRAVEL_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_PLANNING_CACHE", false)
	v.SetDefault("PLANNING_CACHE_TTL", "5m")

	v.SetDefault("EXPORT_CSV_DELIMITER", ";")
	v.SetDefault("EXPORT_CALENDAR_PRODUCT_ID", "-//campus-planner//timetable//FR")
	v.SetDefault("EXPORT_XLSX_SHEET", "Planning")
}

func minutes(raw, fallback int) time.Duration {
	if raw <= 0 {
		raw = fallback
	}
	return time.Duration(raw) * time.Minute
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
