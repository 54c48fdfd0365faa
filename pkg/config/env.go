package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEnv      = "APP_ENV"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvJWTSecret       = "JWT_SECRET"
	EnvJWTExpire       = "JWT_EXPIRE"
	EnvJWTIssuer       = "JWT_ISSUER"
	EnvCookieExpireDay = "JWT_COOKIE_EXPIRE"

	EnvOTPTTL        = "OTP_TTL"
	EnvResetTokenTTL = "RESET_TOKEN_TTL"
	EnvResetURL      = "RESET_PASSWORD_URL"

	EnvMaxActiveBookings = "MAX_ACTIVE_BOOKINGS"
	EnvBookingLockTTL    = "BOOKING_LOCK_TTL"
	EnvTimeZone          = "BUSINESS_TIME_ZONE"
	EnvPhoneRegions      = "PHONE_REGIONS"

	EnvNotifyTimeout     = "NOTIFY_TIMEOUT"
	EnvNotificationTopic = "NOTIFICATION_TOPIC"
	EnvNotificationDLQ   = "NOTIFICATION_DLQ_TOPIC"
)
