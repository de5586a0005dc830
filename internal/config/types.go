package config

// FeedConfig locates the task feed. Exactly one of URL and Path is used.
type FeedConfig struct {
	URL   string `yaml:"url,omitempty"`
	Path  string `yaml:"path,omitempty"`
	Watch bool   `yaml:"watch,omitempty"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	PasswordHash string `yaml:"password_hash,omitempty"`
}

// DisplayConfig controls how tasks are presented.
type DisplayConfig struct {
	Timezone       string `yaml:"timezone"`
	PrimaryAgent   string `yaml:"primary_agent"`
	HumanName      string `yaml:"human_name"`
	HighlightStyle string `yaml:"highlight_style"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config represents the .taskdeck/config.yaml file.
type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	Server  ServerConfig  `yaml:"server"`
	Display DisplayConfig `yaml:"display"`
	Logging LoggingConfig `yaml:"logging"`
}
