package settings

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	Camera Camera `toml:"Camera" yaml:"camera"`
	RTSP   RTSP   `toml:"RTSP" yaml:"rtsp"`
	HTTP   HTTP   `toml:"HTTP" yaml:"http"`
	Logger Logger `toml:"Logger" yaml:"logger"`
}

type Camera struct {
	Host            string `toml:"Host" yaml:"host"`
	HTTPPort        int    `toml:"HTTPPort" yaml:"http_port"`
	User            string `toml:"User" yaml:"user"`
	Pass            string `toml:"Pass" yaml:"pass"`
	SnapshotPath    string `toml:"SnapshotPath" yaml:"snapshot_path"`
	SnapshotTimeout int    `toml:"SnapshotTimeout" yaml:"snapshot_timeout"` // seconds
}

type RTSP struct {
	Port             int    `toml:"Port" yaml:"port"`
	User             string `toml:"User" yaml:"user"`
	Pass             string `toml:"Pass" yaml:"pass"`
	StreamPath       string `toml:"StreamPath" yaml:"stream_path"`
	UserAgent        string `toml:"UserAgent" yaml:"user_agent"`
	DialTimeout      int    `toml:"DialTimeout" yaml:"dial_timeout"`           // seconds
	HandshakeTimeout int    `toml:"HandshakeTimeout" yaml:"handshake_timeout"` // seconds
	PollInterval     int    `toml:"PollInterval" yaml:"poll_interval"`         // seconds
	KeepAlive        int    `toml:"KeepAlive" yaml:"keep_alive"`               // seconds, 0 disables
}

type HTTP struct {
	Host string `toml:"Host" yaml:"host"`
	Port int    `toml:"Port" yaml:"port"`

	// NodeID is stamped into every stream id; give each gateway instance its own.
	NodeID int64 `toml:"NodeID" yaml:"node_id"`
}

type Logger struct {
	Level       string `toml:"Level" yaml:"level"`
	Dir         string `toml:"Dir" yaml:"dir"`
	MaxSize     int    `toml:"MaxSize" yaml:"max_size"`
	MaxBackups  int    `toml:"MaxBackups" yaml:"max_backups"`
	MaxAge      int    `toml:"MaxAge" yaml:"max_age"`
	Development bool   `toml:"Development" yaml:"development"`
}

func (c *Config) fixme() {
	if c.Camera.Host == "" {
		c.Camera.Host = "192.168.1.64"
	}
	if c.Camera.HTTPPort == 0 {
		c.Camera.HTTPPort = 80
	}
	if c.Camera.User == "" {
		c.Camera.User = "admin"
	}
	if c.Camera.Pass == "" {
		c.Camera.Pass = "12345"
	}
	if c.Camera.SnapshotPath == "" {
		c.Camera.SnapshotPath = "/ISAPI/Streaming/channels/101/picture"
	}
	if c.Camera.SnapshotTimeout == 0 {
		c.Camera.SnapshotTimeout = 10
	}
	if c.RTSP.Port == 0 {
		c.RTSP.Port = 40554
	}
	if c.RTSP.User == "" {
		c.RTSP.User = c.Camera.User
	}
	if c.RTSP.Pass == "" {
		c.RTSP.Pass = c.Camera.Pass
	}
	if c.RTSP.StreamPath == "" {
		c.RTSP.StreamPath = "Streaming/Channels/101"
	}
	if c.RTSP.DialTimeout == 0 {
		c.RTSP.DialTimeout = 10
	}
	if c.RTSP.HandshakeTimeout == 0 {
		c.RTSP.HandshakeTimeout = 15
	}
	if c.RTSP.PollInterval == 0 {
		c.RTSP.PollInterval = 10
	}
	if c.HTTP.Host == "" {
		c.HTTP.Host = "0.0.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.NodeID == 0 {
		c.HTTP.NodeID = 1
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}

func (c *Config) Validate() error {
	ports := map[string]int{
		"rtsp port":        c.RTSP.Port,
		"http port":        c.HTTP.Port,
		"camera http port": c.Camera.HTTPPort,
	}
	for name, port := range ports {
		if port <= 0 || port > 65535 {
			return errors.Errorf("invalid %s: %d (must be between 1-65535)", name, port)
		}
	}
	if c.HTTP.NodeID < 0 || c.HTTP.NodeID > 1023 {
		return errors.Errorf("invalid node id: %d (must be between 0-1023)", c.HTTP.NodeID)
	}
	if c.RTSP.PollInterval <= 0 {
		return errors.Errorf("invalid rtsp poll interval: %d", c.RTSP.PollInterval)
	}
	if c.RTSP.KeepAlive < 0 {
		return errors.Errorf("invalid rtsp keep alive: %d", c.RTSP.KeepAlive)
	}
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("invalid log level: %s", c.Logger.Level)
	}
	return nil
}

// RTSPURL is rtsp://<user>:<pass>@<host>:<port>/<stream-path>.
func (c *Config) RTSPURL() string {
	u := url.URL{
		Scheme: "rtsp",
		User:   url.UserPassword(c.RTSP.User, c.RTSP.Pass),
		Host:   net.JoinHostPort(c.Camera.Host, strconv.Itoa(c.RTSP.Port)),
		Path:   "/" + strings.TrimLeft(c.RTSP.StreamPath, "/"),
	}
	return u.String()
}

func (c *Config) SnapshotURL() string {
	host := c.Camera.Host
	if c.Camera.HTTPPort != 80 {
		host = net.JoinHostPort(c.Camera.Host, strconv.Itoa(c.Camera.HTTPPort))
	}
	return fmt.Sprintf("http://%s/%s", host, strings.TrimLeft(c.Camera.SnapshotPath, "/"))
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

func (r RTSP) DialTimeoutDuration() time.Duration {
	return time.Duration(r.DialTimeout) * time.Second
}

func (r RTSP) HandshakeTimeoutDuration() time.Duration {
	return time.Duration(r.HandshakeTimeout) * time.Second
}

func (r RTSP) PollIntervalDuration() time.Duration {
	return time.Duration(r.PollInterval) * time.Second
}

func (r RTSP) KeepAliveDuration() time.Duration {
	return time.Duration(r.KeepAlive) * time.Second
}

func (c Camera) SnapshotTimeoutDuration() time.Duration {
	return time.Duration(c.SnapshotTimeout) * time.Second
}
