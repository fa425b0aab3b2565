package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "tradeinz"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TRADEINZ_DB_DSN"
	EnvDBHost = "TRADEINZ_DB_HOST"
	EnvDBUser = "TRADEINZ_DB_USER"
	EnvDBName = "TRADEINZ_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
