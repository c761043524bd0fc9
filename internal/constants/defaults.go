package constants

// Default pipeline configuration values
const (
	// DefaultReadyThreshold is the message count at which a conversation is
	// considered ready for downstream processing.
	DefaultReadyThreshold = 3

	DefaultServerPort   = 8082
	DefaultMaxBodyBytes = 1024 * 1024
)

// Default timeout and retry values
const (
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30

	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
)

// Validation bounds
const (
	MaxMessageIDLength   = 256
	MinPhoneNumberLength = 8
	MaxPhoneNumberLength = 20
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
	DefaultMessageIDLength = 16
)

// Encryption salts. Key material itself always comes from the environment;
// these only namespace the derivation.
const (
	EncryptionSalt       = "leadflow-field-encryption-v1"
	EncryptionLookupSalt = "leadflow-lookup-v1"
)
