// Package cli implements the projecthub command.
//
// # Commands
//
// serve: Run the API server and the health/metrics server
//
//	projecthub serve -config /etc/projecthub.yaml
//
// migrate: Apply pending schema migrations and exit
//
//	projecthub migrate
//
// token: Manage API tokens. The plaintext token is printed once.
//
//	projecthub token create -user-id 42 -name laptop
//	projecthub token revoke -token phub_...
//
// # Configuration
//
// Every command reads PROJECTHUB_* environment variables on top of an
// optional YAML file given by -config or PROJECTHUB_CONFIG_FILE. See package
// config for the full list.
//
// While serving, the configuration file is watched and log level changes
// take effect without a restart. Maintenance jobs (database pool metrics,
// revoked token purging and rate limiter cleanup) run on cron schedules.
package cli
