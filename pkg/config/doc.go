// Package config loads projecthub configuration.
//
// Values come from Default, then the YAML file named by
// PROJECTHUB_CONFIG_FILE, then PROJECTHUB_* environment variables; later
// sources win. Validate runs last.
//
// Server settings:
//
//	PROJECTHUB_HOST="0.0.0.0"
//	PROJECTHUB_PORT="8080"
//	PROJECTHUB_HEALTH_PORT="9090"
//	PROJECTHUB_MAX_UPLOAD_BYTES="33554432"
//
// Database settings:
//
//	PROJECTHUB_DATABASE_DRIVER="postgres"  # postgres, sqlite3
//	PROJECTHUB_DATABASE_URL="postgres://localhost/projecthub?sslmode=disable"
//	PROJECTHUB_DATABASE_AUTO_MIGRATE="true"
//
// Project list cache:
//
//	PROJECTHUB_CACHE_BACKEND="memory"  # memory, redis
//	PROJECTHUB_CACHE_TTL="300s"
//	PROJECTHUB_REDIS_URL="redis://localhost:6379/0"
//
// Documents (disabled without a bucket):
//
//	PROJECTHUB_S3_BUCKET="projecthub-documents"
//	PROJECTHUB_S3_ENDPOINT="http://minio:9000"
//	PROJECTHUB_S3_USE_PATH_STYLE="true"
//
// Invitations:
//
//	PROJECTHUB_MAIL_MODE="smtp"  # smtp, log
//	PROJECTHUB_SMTP_HOST="smtp.example.com"
//	PROJECTHUB_SMTP_TIMEOUT="30s"
//	PROJECTHUB_MAIL_FROM="from@example.com"
//
// Observability:
//
//	PROJECTHUB_LOG_LEVEL="info"  # debug, info, warn, error
//	PROJECTHUB_METRICS_ENABLED="true"
//	PROJECTHUB_OTEL_ENABLED="true"
//	PROJECTHUB_OTEL_ENDPOINT="otel-collector:4317"
package config
