package wgconf

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yllada/wg-manager/common"
)

func peer(name, pub, allowed string) Section {
	s := Section{Name: name}
	s.SetPublicKey(pub)
	s.SetAllowedIPs(allowed)
	return s
}

func TestNextAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want string
	}{
		{"empty model", &Config{}, "10.0.0.2/32"},
		{"single peer", &Config{Peers: []Section{peer("", "A", "10.0.0.5/32")}}, "10.0.0.6/32"},
		{"last octet overflow is not handled", &Config{Peers: []Section{peer("", "A", "10.0.0.255/32")}}, "10.0.0.256/32"},
		{
			name: "interface address counts",
			cfg: func() *Config {
				c := &Config{}
				c.Interface.SetAddress("10.8.0.1/24")
				return c
			}(),
			want: "10.8.0.2/32",
		},
		{
			name: "greatest tuple wins",
			cfg: &Config{Peers: []Section{
				peer("", "A", "10.0.0.9/32"),
				peer("", "B", "10.0.1.3/32"),
				peer("", "C", "10.0.0.200/32"),
				peer("", "D", "9.255.255.255/32"),
			}},
			want: "10.0.1.4/32",
		},
		{
			name: "only the first entry is considered",
			cfg:  &Config{Peers: []Section{peer("", "A", "10.0.0.3/32, 10.0.0.50/32")}},
			want: "10.0.0.4/32",
		},
		{
			name: "malformed entries ignored",
			cfg: &Config{Peers: []Section{
				peer("", "A", "fd00::2/128"),
				peer("", "B", "10.0.0/32"),
				peer("", "C", "10.0.x.7/32"),
				peer("", "D", ""),
				peer("", "E", "10.0.0.4"),
			}},
			want: "10.0.0.5/32",
		},
		{
			name: "nothing valid falls back to default",
			cfg:  &Config{Peers: []Section{peer("", "A", "0.0.0.0.0/0"), peer("", "B", "::/0")}},
			want: "10.0.0.2/32",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextAddress(tt.cfg))
		})
	}
}

func TestAddPeer(t *testing.T) {
	base := Parse(referenceConf)
	before := base.Clone()

	got, err := AddPeer(base, " Alice ", "10.0.0.4/32", "PUBKEY1")
	require.NoError(t, err)

	require.Len(t, got.Peers, 3)
	added := got.Peers[2]
	assert.Equal(t, "Alice", added.Name)
	assert.Equal(t, []Field{
		{Key: KeyPublicKey, Value: "PUBKEY1"},
		{Key: KeyAllowedIPs, Value: "10.0.0.4/32"},
	}, added.Fields)

	if diff := cmp.Diff(before, base); diff != "" {
		t.Errorf("AddPeer mutated its input (-before +after):\n%s", diff)
	}
}

func TestAddPeer_Rejects(t *testing.T) {
	base := Parse(referenceConf)
	existing := base.Peers[0].PublicKey()

	_, err := AddPeer(base, "dup", "10.0.0.9/32", existing)
	assert.True(t, errors.Is(err, common.ErrDuplicatePeer))

	_, err = AddPeer(base, "blank", "10.0.0.9/32", "  ")
	assert.True(t, errors.Is(err, common.ErrInvalidPeer))

	_, err = AddPeer(base, "two\nlines", "10.0.0.9/32", "NEW")
	assert.True(t, errors.Is(err, common.ErrInvalidPeer))
}

func TestNameRoundTrip(t *testing.T) {
	cfg, err := AddPeer(&Config{}, "Alice", "10.0.0.2/32", "PUBKEY1")
	require.NoError(t, err)

	got := Parse(Serialize(cfg))
	require.Len(t, got.Peers, 1)
	assert.Equal(t, "Alice", got.Peers[0].Name)
	assert.Equal(t, "PUBKEY1", got.Peers[0].PublicKey())
}

func TestAddThenDelete(t *testing.T) {
	for _, text := range []string{"", referenceConf} {
		base := Parse(text)

		added, err := AddPeer(base, "tmp", NextAddress(base), "K")
		require.NoError(t, err)
		deleted, n := DeletePeer(added, "K")

		assert.Equal(t, 1, n)
		if diff := cmp.Diff(base.Peers, deleted.Peers, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("peers differ after add+delete (-want +got):\n%s", diff)
		}
	}
}

func TestDeletePeer(t *testing.T) {
	base := &Config{Peers: []Section{
		peer("a", "DUP", "10.0.0.2/32"),
		peer("b", "OTHER", "10.0.0.3/32"),
		peer("c", "DUP", "10.0.0.4/32"),
	}}
	before := base.Clone()

	got, n := DeletePeer(base, "DUP")
	assert.Equal(t, 2, n)
	require.Len(t, got.Peers, 1)
	assert.Equal(t, "b", got.Peers[0].Name)
	assert.Equal(t, before, base, "input must not change")

	got, n = DeletePeer(base, "MISSING")
	assert.Zero(t, n)
	assert.Equal(t, base, got)
}

func TestRenamePeer(t *testing.T) {
	base := &Config{Peers: []Section{
		peer("a", "DUP", "10.0.0.2/32"),
		peer("b", "OTHER", "10.0.0.3/32"),
		peer("", "DUP", "10.0.0.4/32"),
	}}
	before := base.Clone()

	got, n := RenamePeer(base, "DUP", " phone\nwork ")
	assert.Equal(t, 2, n)
	assert.Equal(t, "phone work", got.Peers[0].Name)
	assert.Equal(t, "b", got.Peers[1].Name)
	assert.Equal(t, "phone work", got.Peers[2].Name)
	assert.Equal(t, before, base, "input must not change")

	_, n = RenamePeer(base, "MISSING", "x")
	assert.Zero(t, n)

	cleared, n := RenamePeer(base, "OTHER", "")
	assert.Equal(t, 1, n)
	assert.NotContains(t, Serialize(cleared), "# Name: b")
}

func TestSection_SetAndDelete(t *testing.T) {
	var s Section
	s.Set("A", "1")
	s.Set("B", "2")
	s.Set("A", "3")
	assert.Equal(t, []Field{{Key: "A", Value: "3"}, {Key: "B", Value: "2"}}, s.Fields)

	assert.True(t, s.Delete("A"))
	assert.False(t, s.Delete("A"))
	_, ok := s.Get("A")
	assert.False(t, ok)
	assert.Equal(t, "2", s.Value("B"))
}
