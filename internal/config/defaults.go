package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8080
	DefaultEnvironment = "development"
	DefaultLogLevel    = "info"

	DefaultServerName      = "clawminium-kernel"
	DefaultServerVersion   = "1.0.0"
	DefaultProtocolVersion = "2025-11-25"

	DefaultDiscoveryPath = "/discover"
	DefaultLegacyPath    = "/sse"
	DefaultRPCPath       = "/rpc"

	// DefaultAdvertiseHost is used when a discovery request carries neither
	// X-Forwarded-Host nor Host.
	DefaultAdvertiseHost = "127.0.0.1:8080"

	DefaultKeepAliveInterval = 15 // seconds
	DefaultToolCallTimeout   = 30 // seconds
	DefaultMaxBodyBytes      = 1 << 20

	DefaultRateLimitPerMinute = 600

	DefaultAlertQueueSize  = 64
	DefaultAlertWorkers    = 2
	DefaultAlertMaxRetries = 3
	DefaultAlertTimeout    = 5 // seconds

	DefaultElasticsearchPort       = 9200
	DefaultElasticsearchScheme     = "http"
	DefaultElasticsearchMaxRetries = 3
	DefaultElasticsearchAlertIndex = "agentkernel-alerts"
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}
