package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	Payment  Payment  `envPrefix:"PAYMENT_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
}

type Payment struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://api.payments.example.com"`
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Kafka struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Brokers string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string `env:"TOPIC" envDefault:"order-notifications"`
}

type Checkout struct {
	Currency              string  `env:"CURRENCY" envDefault:"eur"`
	TaxRate               float64 `env:"TAX_RATE" envDefault:"0.21"`
	FreeShippingThreshold float64 `env:"FREE_SHIPPING_THRESHOLD" envDefault:"50"`
	CashbackPercent       float64 `env:"CASHBACK_PERCENT" envDefault:"5"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
