package cfg

type Cfg struct {
	// Paths
	ConfigPath string
	OutputDir  string
	CacheDB    string

	// Processing configuration
	WorkerCount     int
	RequestTimeout  int // seconds
	RefreshInterval int // seconds, serve mode only

	// Serve mode
	Serve bool
	Port  string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
