// Package wgconf reads, edits and writes wg-quick style tunnel
// configuration files.
//
// A file is parsed into a Config: one [Interface] Section and an ordered list
// of [Peer] Sections. Each Section is an ordered key/value list plus an
// optional display name that lives on disk as a "# Name: <value>" comment.
// Mutations are pure functions returning a new Config; Persist writes a
// Config back after copying the previous file to "<path>.bak".
package wgconf

// Well-known keys.
const (
	KeyPrivateKey = "PrivateKey"
	KeyPublicKey  = "PublicKey"
	KeyAddress    = "Address"
	KeyListenPort = "ListenPort"
	KeyDNS        = "DNS"
	KeyAllowedIPs = "AllowedIPs"
	KeyEndpoint   = "Endpoint"
)

// interfaceKeyOrder is the fixed order in which well-known interface keys
// are written before any other key.
var interfaceKeyOrder = []string{KeyPrivateKey, KeyAddress, KeyListenPort, KeyDNS}

// Field is one "Key = Value" line.
type Field struct {
	Key   string
	Value string
}

// Section is a configuration block. Fields keep encounter order.
type Section struct {
	// Name comes from the "# Name:" comment. Empty means no comment.
	Name   string
	Fields []Field
}

// Config is the in-memory form of a tunnel configuration file.
type Config struct {
	Interface Section
	Peers     []Section
}

// Get returns the value stored under key.
func (s *Section) Get(key string) (string, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the value stored under key, or "" if absent.
func (s *Section) Value(key string) string {
	v, _ := s.Get(key)
	return v
}

// Set replaces the value of an existing key in place, or appends it.
func (s *Section) Set(key, value string) {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, Field{Key: key, Value: value})
}

// Delete removes key. It reports whether the key was present.
func (s *Section) Delete(key string) bool {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			s.Fields = append(s.Fields[:i:i], s.Fields[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := Section{Name: s.Name}
	if s.Fields != nil {
		out.Fields = append([]Field(nil), s.Fields...)
	}
	return out
}

// PrivateKey returns the PrivateKey field.
func (s *Section) PrivateKey() string { return s.Value(KeyPrivateKey) }

// PublicKey returns the PublicKey field, the identity of a peer.
func (s *Section) PublicKey() string { return s.Value(KeyPublicKey) }

// Address returns the Address field.
func (s *Section) Address() string { return s.Value(KeyAddress) }

// ListenPort returns the ListenPort field.
func (s *Section) ListenPort() string { return s.Value(KeyListenPort) }

// DNS returns the DNS field.
func (s *Section) DNS() string { return s.Value(KeyDNS) }

// AllowedIPs returns the AllowedIPs field.
func (s *Section) AllowedIPs() string { return s.Value(KeyAllowedIPs) }

// Endpoint returns the Endpoint field.
func (s *Section) Endpoint() string { return s.Value(KeyEndpoint) }

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := &Config{Interface: c.Interface.Clone()}
	if c.Peers != nil {
		out.Peers = make([]Section, len(c.Peers))
		for i, p := range c.Peers {
			out.Peers[i] = p.Clone()
		}
	}
	return out
}

// FindPeer returns the index of the first peer with the given public key,
// or -1.
func (c *Config) FindPeer(publicKey string) int {
	for i := range c.Peers {
		if c.Peers[i].PublicKey() == publicKey {
			return i
		}
	}
	return -1
}

// SetPublicKey sets the PublicKey field.
func (s *Section) SetPublicKey(v string) { s.Set(KeyPublicKey, v) }

// SetAllowedIPs sets the AllowedIPs field.
func (s *Section) SetAllowedIPs(v string) { s.Set(KeyAllowedIPs, v) }

// SetAddress sets the Address field.
func (s *Section) SetAddress(v string) { s.Set(KeyAddress, v) }

// SetPrivateKey sets the PrivateKey field.
func (s *Section) SetPrivateKey(v string) { s.Set(KeyPrivateKey, v) }

// SetListenPort sets the ListenPort field.
func (s *Section) SetListenPort(v string) { s.Set(KeyListenPort, v) }

// SetDNS sets the DNS field.
func (s *Section) SetDNS(v string) { s.Set(KeyDNS, v) }
