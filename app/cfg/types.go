package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	Port         string
	SyncInterval int
	UIDir        string

	// Push notification credentials
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
