package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvGatewayKeyID     = "STOREFRONT_GATEWAY_KEY_ID"
	EnvGatewayKeySecret = "STOREFRONT_GATEWAY_KEY_SECRET"

	EnvFreeShippingThreshold = "STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD_MINOR"
	EnvFlatShippingFee       = "STOREFRONT_CHECKOUT_FLAT_SHIPPING_FEE_MINOR"
	EnvOrderNumberPrefix     = "STOREFRONT_ORDER_NUMBER_PREFIX"
	EnvCheckoutMaxLines      = "STOREFRONT_CHECKOUT_MAX_LINES"

	EnvGCPProjectID = "STOREFRONT_GCP_PROJECT_ID"
	EnvOrdersTopic  = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
