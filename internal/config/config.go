package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Sub-configs group the settings of one concern.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    JWTSecret    string // secret used to verify admin JWTs
    AccessTTLMin int    // access token time‑to‑live in minutes
    StoreDriver  string // "mysql" or "memory"
    DB           DBConfig
    Booking      BookingConfig
    Queue        QueueConfig
    Mongo        MongoConfig
    Catalog      CatalogCacheConfig
}

// DBConfig holds the MySQL connection settings.  They are required only
// when StoreDriver is "mysql".
type DBConfig struct {
    User        string // database username
    Pass        string // database password (optional)
    Host        string // database host address
    Port        string // database port number
    Name        string // database name
    AutoMigrate bool   // create tables and seed the catalog on startup
}

// BookingConfig holds the business rules of the reservation engine.
// Rates are basis points: 2100 means 21%.
type BookingConfig struct {
    TaxRateBP         int64
    DepositRequired   bool
    DepositPercentBP  int64
    PaymentRequired   bool
    MassageDuration   time.Duration
    Timezone          string
    CancellationTiers string // "days:percent" pairs, e.g. "30:100,7:50,0:0"
    WebhookSecret     string // shared secret expected on payment callbacks
}

// QueueConfig configures the RabbitMQ notification publisher and the
// optional in-process consumer.
type QueueConfig struct {
    URL             string // empty disables publishing
    Name            string
    ConsumerEnabled bool
    LogDir          string
}

// MongoConfig configures the optional MongoDB event sink.
type MongoConfig struct {
    URI      string // empty disables the sink
    Database string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:          must("APP_ENV"),                   // environment (dev/test/prod)
        Port:         must("APP_PORT"),                  // port to bind the HTTP server
        JWTSecret:    must("JWT_SECRET"),                // secret used for verifying JWTs
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        StoreDriver:  envStr("STORE_DRIVER", "mysql"),   // persistence backend
        Booking:      LoadBookingConfig(),
        Queue: QueueConfig{
            URL:             os.Getenv("RABBITMQ_URL"),
            Name:            envStr("RESERVATION_QUEUE", "reservation.events"),
            ConsumerEnabled: envBool("QUEUE_CONSUMER_ENABLED", false),
            LogDir:          envStr("EVENT_LOG_DIR", "logs"),
        },
        Mongo: MongoConfig{
            URI:      os.Getenv("MONGODB_URI"),
            Database: envStr("MONGODB_DB", "venue"),
        },
        Catalog: LoadCatalogCacheConfig(),
    }
    if cfg.StoreDriver == "mysql" {
        cfg.DB = DBConfig{
            User:        must("DB_USER"),      // database user
            Pass:        os.Getenv("DB_PASS"), // database password (empty allowed)
            Host:        must("DB_HOST"),      // database host
            Port:        must("DB_PORT"),      // database port
            Name:        must("DB_NAME"),      // database name
            AutoMigrate: envBool("DB_AUTO_MIGRATE", true),
        }
    }
    return cfg
}

// LoadBookingConfig reads the booking rules.  Every value has a default so
// the engine runs with the venue's standard terms out of the box.
func LoadBookingConfig() BookingConfig {
    return BookingConfig{
        TaxRateBP:         int64(envInt("TAX_RATE_BP", 2100)),
        DepositRequired:   envBool("DEPOSIT_REQUIRED", true),
        DepositPercentBP:  int64(envInt("DEPOSIT_PERCENT_BP", 3000)),
        PaymentRequired:   envBool("PAYMENT_REQUIRED", true),
        MassageDuration:   envDur("MASSAGE_DURATION", time.Hour),
        Timezone:          envStr("VENUE_TIMEZONE", "UTC"),
        CancellationTiers: envStr("CANCELLATION_TIERS", "30:100,7:50,0:0"),
        WebhookSecret:     os.Getenv("PAYMENT_WEBHOOK_SECRET"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
