package wgconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/yllada/wg-manager/common"
)

var (
	headerRe = regexp.MustCompile(`(?im)^[ \t]*\[(interface|peer)\]`)
	nameRe   = regexp.MustCompile(`^#\s*Name:\s*(.*)$`)
)

// Parse turns configuration text into a Config. It never fails: text before
// the first section header, the rest of a header line, lines without '=' and
// lines with an empty key are dropped. Commented-out assignments such as
// "#PostUp = ..." are kept as keys so they are written back. If several
// [Interface] sections occur, the last one wins.
func Parse(text string) *Config {
	cfg := &Config{}

	headers := headerRe.FindAllStringSubmatchIndex(text, -1)
	for i, h := range headers {
		bodyEnd := len(text)
		if i+1 < len(headers) {
			bodyEnd = headers[i+1][0]
		}
		bodyStart := bodyEnd
		if nl := strings.IndexByte(text[h[1]:bodyEnd], '\n'); nl >= 0 {
			bodyStart = h[1] + nl + 1
		}
		section := parseSection(text[bodyStart:bodyEnd])

		if strings.EqualFold(text[h[2]:h[3]], "interface") {
			cfg.Interface = section
		} else {
			cfg.Peers = append(cfg.Peers, section)
		}
	}

	return cfg
}

func parseSection(body string) Section {
	var s Section
	named := false

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			if !named {
				if m := nameRe.FindStringSubmatch(line); m != nil {
					s.Name = strings.TrimSpace(m[1])
					named = true
					continue
				}
			}
			if !strings.Contains(line, "=") {
				continue
			}
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		s.Set(key, strings.TrimSpace(value))
	}

	return s
}

// Load reads and parses the file at path. A missing file yields an empty
// Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			common.LogDebug("Configuration %s does not exist, starting empty", path)
			return &Config{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", common.ErrConfigLoad, path, err)
	}

	cfg := Parse(string(data))
	common.LogDebug("Loaded %s: %d peers", path, len(cfg.Peers))
	return cfg, nil
}
