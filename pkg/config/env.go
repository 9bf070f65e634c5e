package config

// EnvPrefix namespaces every fabtrack environment variable.
const EnvPrefix = "FABTRACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "FABTRACK_DB_DSN"
	EnvDBHost = "FABTRACK_DB_HOST"
	EnvDBUser = "FABTRACK_DB_USER"
	EnvDBName = "FABTRACK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
