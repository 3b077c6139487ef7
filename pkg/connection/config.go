package connection

import (
	"fmt"
	"net/url"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/logger"
)

type Config struct {
	URL         url.URL
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	Logger      logger.Logger
}

// NewConfig creates a Config for the entity service at u, such as
// "ws://localhost:8765". CBOR is used unless WithCodec picks another codec.
func NewConfig(u *url.URL) *Config {
	c := codec.NewCBOR()
	return &Config{
		URL:         *u,
		Marshaler:   c,
		Unmarshaler: c,
		BaseURL:     fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		Logger:      logger.Nop(),
	}
}

// WithCodec switches the wire encoding.
func (c *Config) WithCodec(cd codec.Codec) *Config {
	c.Marshaler = cd
	c.Unmarshaler = cd
	return c
}

// WithLogger sets the connection logger.
func (c *Config) WithLogger(l logger.Logger) *Config {
	c.Logger = l
	return c
}
