package music_player

import "time"

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"            envDefault:"false"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID,notEmpty"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET,notEmpty"`

	// DownloaderURL is the base URL of the service that streams a track by id.
	DownloaderURL string `env:"DOWNLOADER_URL" envDefault:"http://downloader"`

	MetadataCacheTTL   time.Duration `env:"METADATA_CACHE_TTL"   envDefault:"1h"`
	CacheSweepSchedule string        `env:"CACHE_SWEEP_SCHEDULE" envDefault:"@every 10m"`

	// RedisURL selects the shared Redis metadata cache. Empty keeps the cache in memory.
	RedisURL string `env:"REDIS_URL"`

	ReadyTimeout time.Duration `env:"VOICE_READY_TIMEOUT" envDefault:"20s"`
}
