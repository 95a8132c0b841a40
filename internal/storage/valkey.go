package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const valkeyTimeout = 3 * time.Second

// ValkeyStore 基于 Valkey/Redis 的共享 KV 实现
// ValkeyStore shares session values through a Valkey (or Redis) server.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// ValkeyOptions parses a redis:// or rediss:// URI into client options.
func ValkeyOptions(uri string) (valkey.ClientOption, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("parse valkey uri: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss", "valkey", "valkeys":
	default:
		return valkey.ClientOption{}, fmt.Errorf("unsupported valkey scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return valkey.ClientOption{}, fmt.Errorf("valkey uri has no host")
	}

	opts := valkey.ClientOption{InitAddress: []string{u.Host}}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	if u.Scheme == "rediss" || u.Scheme == "valkeys" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname()}
	}
	return opts, nil
}

// NewValkeyStore connects to uri and namespaces every key under prefix.
func NewValkeyStore(uri, prefix string) (*ValkeyStore, error) {
	opts, err := ValkeyOptions(uri)
	if err != nil {
		return nil, err
	}
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("connect valkey: %w", err)
	}
	return &ValkeyStore{client: client, prefix: keyPrefix(prefix)}, nil
}

// keyPrefix drops a trailing separator so "todo" and "todo:" both give todo:<key>
func keyPrefix(prefix string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), ":")
}

func (s *ValkeyStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *ValkeyStore) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()
	value, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

func (s *ValkeyStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()
	if err := s.client.Do(ctx, s.client.B().Set().Key(s.key(key)).Value(value).Build()).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *ValkeyStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()
	err := s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
