package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Default client configuration values
const (
	DefaultServer  = "http://localhost:8080"
	DefaultSTUN    = "stun:stun.l.google.com:19302"
	DefaultFraming = "text"
)

// Config holds the CLI's configuration
type Config struct {
	// ServerURL is the relay's HTTP base, e.g. https://relay.example.com
	ServerURL string

	// WebSocketURL and APIBase are derived from ServerURL
	WebSocketURL string
	APIBase      string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN candidates
	ForceRelay bool

	// Framing names the transfer codec, "text" or "msgpack"
	Framing string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Framing    string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := firstNonEmpty(opts.Server, os.Getenv("ROOMDROP_SERVER"), DefaultServer)
	base, wsURL, err := deriveURLs(server)
	if err != nil {
		return nil, err
	}

	framing := strings.ToLower(firstNonEmpty(opts.Framing, os.Getenv("FRAMING"), DefaultFraming))
	if framing != "text" && framing != "msgpack" {
		return nil, fmt.Errorf("unknown framing %q (want text or msgpack)", framing)
	}

	forceRelay := opts.ForceRelay
	if !forceRelay {
		forceRelay, _ = strconv.ParseBool(os.Getenv("ROOMDROP_FORCE_RELAY"))
	}

	cfg := &Config{
		ServerURL:    base,
		WebSocketURL: wsURL,
		APIBase:      base + "/api",
		STUNServer:   firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer:   firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER")),
		TURNUser:     firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME")),
		TURNPass:     firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD")),
		ForceRelay:   forceRelay,
		Framing:      framing,
	}
	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, fmt.Errorf("relay-only mode needs a TURN server")
	}
	return cfg, nil
}

// deriveURLs normalises the server address and builds its websocket URL.
// A bare host:port is treated as plain http.
func deriveURLs(server string) (string, string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", "", fmt.Errorf("invalid server address %q: %w", server, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid server address %q: missing host", server)
	}

	var wsScheme string
	switch u.Scheme {
	case "http", "ws":
		u.Scheme, wsScheme = "http", "ws"
	case "https", "wss":
		u.Scheme, wsScheme = "https", "wss"
	default:
		return "", "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}

	base := fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, strings.TrimSuffix(u.Path, "/"))
	wsURL := fmt.Sprintf("%s://%s%s/ws", wsScheme, u.Host, strings.TrimSuffix(u.Path, "/"))
	return base, wsURL, nil
}

// RoomsURL is the REST collection endpoint for rooms
func (c *Config) RoomsURL() string {
	return c.APIBase + "/rooms"
}

// RoomURL is the REST endpoint for a single room
func (c *Config) RoomURL(roomID string) string {
	return c.RoomsURL() + "/" + url.PathEscape(roomID)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured. A bare host is
// expanded to the standard UDP, TCP and TLS ports.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	if strings.Contains(c.TURNServer, "?") || hasPort(c.TURNServer) {
		return []string{c.TURNServer}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turn:"), "turns:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func hasPort(server string) bool {
	hostport := server
	if i := strings.Index(hostport, ":"); i >= 0 && (strings.HasPrefix(hostport, "turn:") || strings.HasPrefix(hostport, "turns:")) {
		hostport = hostport[i+1:]
	}
	_, port, err := net.SplitHostPort(hostport)
	return err == nil && port != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
