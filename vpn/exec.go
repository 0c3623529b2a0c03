package vpn

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yllada/wg-manager/common"
)

// commandRunner runs an external program and returns its standard output.
// stdin is fed to the program when non-empty.
type commandRunner func(ctx context.Context, stdin, binary string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, stdin, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	common.LogDebug("Running %s %s", binary, strings.Join(args, " "))
	output, err := cmd.Output()
	if err != nil {
		trimmed := strings.TrimSpace(stderr.String())
		if trimmed == "" {
			trimmed = strings.TrimSpace(string(output))
		}
		if trimmed == "" {
			return output, fmt.Errorf("%w: %s %s: %w", common.ErrExternalTool, baseName(binary), strings.Join(args, " "), err)
		}
		return output, fmt.Errorf("%w: %s %s: %w: %s", common.ErrExternalTool, baseName(binary), strings.Join(args, " "), err, trimmed)
	}

	return output, nil
}

// baseName returns the last element of a path using either separator, so
// Windows paths resolve the same on every platform.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ResolveWGTool returns the path of the wg command line tool for the
// configured WireGuard binary. The Windows GUI binary wireguard.exe ships
// with wg.exe next to it.
func ResolveWGTool(wgPath string) string {
	if wgPath == "" {
		return "wg"
	}
	base := baseName(wgPath)
	dir := wgPath[:len(wgPath)-len(base)]
	switch strings.ToLower(base) {
	case "wireguard.exe":
		return dir + "wg.exe"
	case "wireguard":
		return dir + "wg"
	}
	return wgPath
}
