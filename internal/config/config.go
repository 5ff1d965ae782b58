package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed ice_servers.yaml
var iceServersYAML []byte

type Config struct {
	Faces     FacesConfig
	Embedding EmbeddingConfig
	Match     MatchConfig
	Web       WebConfig
	ICE       ICEConfig
}

type FacesConfig struct {
	Dir string // directory with one image per enrolled identity
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 512
}

type MatchConfig struct {
	Tolerance float64 // maximum cosine distance to accept a match (default 0.5)
	Strategy  string  // "first" (scan order) or "nearest" (HNSW lookup)
}

type WebConfig struct {
	Host          string
	Port          int
	SessionSecret string
	AdminName     string // session name granted access to the admin endpoints
}

// ICEConfig is served to browser clients so they can configure their
// RTCPeerConnection before signaling starts.
type ICEConfig struct {
	Servers []ICEServer `yaml:"servers" json:"servers"`
}

type ICEServer struct {
	URLs       []string `yaml:"urls" json:"urls"`
	Username   string   `yaml:"username,omitempty" json:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty" json:"credential,omitempty"`
}

// Match strategies. "first" preserves the historical behavior of returning
// the earliest enrolled identity within tolerance; "nearest" picks the
// closest embedding via the HNSW index.
const (
	StrategyFirst   = "first"
	StrategyNearest = "nearest"
)

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var ice ICEConfig
	if err := yaml.Unmarshal(iceServersYAML, &ice); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded ice_servers.yaml: " + err.Error())
	}

	strategy := envString("MATCH_STRATEGY", StrategyFirst)
	if strategy != StrategyFirst && strategy != StrategyNearest {
		strategy = StrategyFirst
	}

	return &Config{
		Faces: FacesConfig{
			Dir: envString("FACES_DIR", "faces"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Match: MatchConfig{
			Tolerance: envFloat("MATCH_TOLERANCE", 0.5),
			Strategy:  strategy,
		},
		Web: WebConfig{
			Host:          envString("WEB_HOST", "0.0.0.0"),
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
			AdminName:     envString("ADMIN_NAME", "admin"),
		},
		ICE: ice,
	}
}
