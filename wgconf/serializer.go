package wgconf

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yllada/wg-manager/common"
)

// Serialize renders cfg as configuration text. Well-known interface keys come
// first in a fixed order, every other key follows in encounter order. The
// output ends with a newline.
func Serialize(cfg *Config) string {
	var b strings.Builder

	b.WriteString("[Interface]\n")
	writeName(&b, cfg.Interface.Name)
	for _, key := range interfaceKeyOrder {
		if v, ok := cfg.Interface.Get(key); ok {
			writeField(&b, key, v)
		}
	}
	for _, f := range cfg.Interface.Fields {
		if !slices.Contains(interfaceKeyOrder, f.Key) {
			writeField(&b, f.Key, f.Value)
		}
	}

	for _, peer := range cfg.Peers {
		b.WriteString("\n[Peer]\n")
		writeName(&b, peer.Name)
		for _, f := range peer.Fields {
			writeField(&b, f.Key, f.Value)
		}
	}

	return b.String()
}

func writeName(b *strings.Builder, name string) {
	if name != "" {
		fmt.Fprintf(b, "# Name: %s\n", name)
	}
}

func writeField(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s = %s\n", key, value)
}

// Persist writes cfg to path. An existing file is first copied to
// path+".bak", replacing any older backup. The new text goes to a temporary
// file in the same directory which is then renamed over path, so a failed
// write leaves both the old file and its backup untouched.
//
// When path is a symbolic link the link is kept and its target is replaced.
// Only the permission bits of the old file carry over; owner and ACLs do not.
func Persist(cfg *Config, path string) error {
	mode := os.FileMode(0600)
	target := path
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
		backup := path + common.BackupSuffix
		if err := common.CopyFile(path, backup); err != nil {
			return fmt.Errorf("%w: backup of %s: %w", common.ErrConfigSave, path, err)
		}
		common.LogDebug("Backed up %s to %s", path, backup)

		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			target = resolved
		}
	}

	if err := writeFileAtomic(target, []byte(Serialize(cfg)), mode); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrConfigSave, path, err)
	}

	common.LogInfo("Saved %s (%d peers)", path, len(cfg.Peers))
	return nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
