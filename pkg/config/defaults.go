package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "rentcar"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "5000"
	DefaultLogLevel = "info"
	DefaultEnv      = "development"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultJWTExpire       = 30 * 24 * time.Hour
	DefaultJWTIssuer       = "rentcar"
	DefaultCookieExpireDay = 30

	DefaultOTPTTL        = 7 * 24 * time.Hour
	DefaultResetTokenTTL = 1 * time.Hour
	DefaultResetURL      = "http://localhost:5000/api/v1/auth/resetpassword"

	DefaultMaxActiveBookings = 3
	DefaultBookingLockTTL    = 10 * time.Second
	DefaultTimeZone          = "Asia/Bangkok"
	DefaultPhoneRegions      = "TH,US"

	DefaultNotifyTimeout     = 10 * time.Second
	DefaultNotificationTopic = "rentcar.notifications"
	DefaultNotificationDLQ   = "rentcar.notifications.dlq"

	DefaultPaginationLimit = 100
)
