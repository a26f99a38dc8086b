package config

// EnvPrefix is the envconfig prefix; individual fields carry full names so
// this stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "STORELY_DB_DSN"
	EnvDBHost = "STORELY_DB_HOST"
	EnvDBUser = "STORELY_DB_USER"
	EnvDBName = "STORELY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
