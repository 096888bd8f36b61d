package configs

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var mpConfig map[string]interface{}

func LoadFileConfig() {
	_ = godotenv.Load()
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	filePath := fmt.Sprintf("configs/config.%s.yaml", env)
	data, err := os.ReadFile(filePath)
	if err != nil {
		logrus.WithError(err).WithField("path", filePath).Fatal("reading config file")
	}

	if err := LoadBytes(data); err != nil {
		logrus.WithError(err).WithField("path", filePath).Fatal("parsing config file")
	}

	logrus.WithField("env", env).Info("config loaded")
}

// LoadBytes replaces the active configuration. Environment variables
// referenced as ${VAR} are expanded before parsing.
func LoadBytes(data []byte) error {
	expandedYaml := os.ExpandEnv(string(data))

	cfg := map[string]interface{}{}
	if err := yaml.Unmarshal([]byte(expandedYaml), &cfg); err != nil {
		return err
	}
	mpConfig = cfg
	return nil
}

func section(name string) map[string]interface{} {
	s, ok := mpConfig[name].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return s
}

func getString(sectionName, key, def string) string {
	v, ok := section(sectionName)[key]
	if !ok || v == nil {
		return def
	}
	return fmt.Sprintf("%v", v)
}

func getInt(sectionName, key string, def int) int {
	switch v := section(sectionName)[key].(type) {
	case int:
		return v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

func GetServerPort() string {
	return getString("server", "port", "8080")
}

func GetServerDomain() string {
	return getString("server", "domain", "http://localhost:8080")
}

func GetAllowedOrigins() []string {
	raw, ok := section("server")["allowed_origins"].([]interface{})
	if !ok || len(raw) == 0 {
		return []string{"http://localhost:5173"}
	}
	origins := make([]string, 0, len(raw))
	for _, o := range raw {
		origins = append(origins, fmt.Sprintf("%v", o))
	}
	return origins
}

func GetDatabaseURI() string {
	return getString("database", "uri", "mongodb://localhost:27017/?replicaSet=rs0")
}

func GetDatabaseName() string {
	return getString("database", "name", "ticket_market")
}

func GetJWTSecret() string {
	return getString("jwt", "secret_key", "")
}

func GetJWTIssuer() string {
	return getString("jwt", "issuer", "ticket-market")
}

func GetRedisAddr() string {
	return getString("redis", "addr", "localhost:6379")
}

func GetRedisPassword() string {
	return getString("redis", "password", "")
}

func GetRedisDB() int {
	return getInt("redis", "db", 0)
}

func GetSMTPHost() string {
	return getString("smtp", "host", "localhost")
}

func GetSMTPPort() int {
	return getInt("smtp", "port", 587)
}

func GetSenderEmail() string {
	return getString("app", "sender_email", "")
}

func GetAppPassword() string {
	return getString("app", "app_password", "")
}

func GetVNPAYTmnCode() string {
	return getString("vn_pay", "tmncode", "")
}

func GetVNPAYHashSecret() string {
	return getString("vn_pay", "hash_secret", "")
}

func GetVNPAYUrl() string {
	return getString("vn_pay", "url", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
}

// GetServiceFeePercent is applied to the post-discount subtotal of every order.
func GetServiceFeePercent() decimal.Decimal {
	fee, err := decimal.NewFromString(getString("checkout", "fee_percent", "0"))
	if err != nil {
		logrus.WithError(err).Warn("invalid checkout.fee_percent, using 0")
		return decimal.Zero
	}
	return fee
}

func GetOrderExpirationMinutes() int {
	return getInt("checkout", "order_expiration_minutes", 30)
}

func GetCurrency() string {
	return getString("checkout", "currency", "VND")
}

func GetTicketCodeLength() int {
	return getInt("checkout", "ticket_code_length", 12)
}

func GetMaxRetries() int {
	return getInt("jobs", "max_retries", 3)
}

func GetSweepSchedule() string {
	return getString("jobs", "sweep_cron", "@every 1m")
}

func GetLogLevel() string {
	return getString("log", "level", "info")
}

func GetLogFormat() string {
	return getString("log", "format", "text")
}
