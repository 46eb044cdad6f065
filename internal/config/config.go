package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string
	Origin               string
	Environment          string
	LogLevel             string
	JWTSecret            string
	JWTExpirationMinutes int
	Database             DatabaseConfig
	Slots                SlotConfig
	Booking              BookingConfig
	Telemetry            TelemetryConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// SlotConfig describes the bookable service day of a clinic.
type SlotConfig struct {
	DayStart        string
	DayEnd          string
	IntervalMinutes int
}

// Interval returns the slot width.
func (s SlotConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Active appointment uniqueness scopes.
const (
	ActiveScopeGlobal = "global"
	ActiveScopeStore  = "store"
)

// BookingConfig holds booking policy knobs.
type BookingConfig struct {
	ActiveScope         string
	RoutineMinDaysAhead int
	RoutineMaxDaysAhead int
}

// TelemetryConfig holds OTLP exporter settings. Tracing is off when Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3001")
	v.SetDefault("ORIGIN", "http://localhost:4200")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "default_jwt_secret")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 15)

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "petcare")
	v.SetDefault("DB_DSN", "")

	v.SetDefault("SLOT_DAY_START", "09:00")
	v.SetDefault("SLOT_DAY_END", "17:00")
	v.SetDefault("SLOT_INTERVAL_MINUTES", 30)

	v.SetDefault("ACTIVE_APPOINTMENT_SCOPE", ActiveScopeGlobal)
	v.SetDefault("ROUTINE_MIN_DAYS_AHEAD", 1)
	v.SetDefault("ROUTINE_MAX_DAYS_AHEAD", 7)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "petcare-vet-server")

	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
		DSN:      v.GetString("DB_DSN"),
	}
	if dbConfig.DSN == "" {
		dbConfig.DSN = buildDSN(dbConfig)
	}

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		Origin:               v.GetString("ORIGIN"),
		Environment:          v.GetString("APP_ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTExpirationMinutes: v.GetInt("JWT_EXPIRATION_MINUTES"),
		Database:             dbConfig,
		Slots: SlotConfig{
			DayStart:        v.GetString("SLOT_DAY_START"),
			DayEnd:          v.GetString("SLOT_DAY_END"),
			IntervalMinutes: v.GetInt("SLOT_INTERVAL_MINUTES"),
		},
		Booking: BookingConfig{
			ActiveScope:         strings.ToLower(v.GetString("ACTIVE_APPOINTMENT_SCOPE")),
			RoutineMinDaysAhead: v.GetInt("ROUTINE_MIN_DAYS_AHEAD"),
			RoutineMaxDaysAhead: v.GetInt("ROUTINE_MAX_DAYS_AHEAD"),
		},
		Telemetry: TelemetryConfig{
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Build DSN (Data Source Name) for the selected driver
func buildDSN(db DatabaseConfig) string {
	switch db.Driver {
	case "postgres":
		port := db.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			db.Host, port, db.Username, db.Password, db.Name)
	default:
		port := db.Port
		if port == "" {
			port = "3306"
		}
		// clientFoundRows makes conditional updates report matched rows.
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
			db.Username, db.Password, db.Host, port, db.Name)
	}
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Driver != "mysql" && c.Database.Driver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be \"mysql\" or \"postgres\", got %q", c.Database.Driver)
	}
	if c.Booking.ActiveScope != ActiveScopeGlobal && c.Booking.ActiveScope != ActiveScopeStore {
		return fmt.Errorf("ACTIVE_APPOINTMENT_SCOPE must be %q or %q, got %q",
			ActiveScopeGlobal, ActiveScopeStore, c.Booking.ActiveScope)
	}
	if c.Booking.RoutineMinDaysAhead < 0 || c.Booking.RoutineMaxDaysAhead < c.Booking.RoutineMinDaysAhead {
		return fmt.Errorf("invalid routine booking window: %d..%d days",
			c.Booking.RoutineMinDaysAhead, c.Booking.RoutineMaxDaysAhead)
	}
	if c.JWTExpirationMinutes <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_MINUTES must be positive")
	}
	start, err := time.Parse("15:04", c.Slots.DayStart)
	if err != nil {
		return fmt.Errorf("invalid SLOT_DAY_START: %w", err)
	}
	end, err := time.Parse("15:04", c.Slots.DayEnd)
	if err != nil {
		return fmt.Errorf("invalid SLOT_DAY_END: %w", err)
	}
	if c.Slots.IntervalMinutes <= 0 {
		return fmt.Errorf("SLOT_INTERVAL_MINUTES must be positive")
	}
	if !end.After(start) || end.Sub(start) < c.Slots.Interval() {
		return fmt.Errorf("slot window %s-%s cannot hold a %d minute slot",
			c.Slots.DayStart, c.Slots.DayEnd, c.Slots.IntervalMinutes)
	}
	return nil
}
