package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

// ErrBinaryNotFound reports a browser that is not installed where expected.
type ErrBinaryNotFound struct {
	Path string
}

func (e *ErrBinaryNotFound) Error() string {
	if e.Path == "" {
		return "browser binary not found on PATH"
	}
	return fmt.Sprintf("browser binary not found: %s", e.Path)
}

// ErrUnsupportedBrowser reports a browser that cannot be driven over CDP.
type ErrUnsupportedBrowser struct {
	Path string
}

func (e *ErrUnsupportedBrowser) Error() string {
	return fmt.Sprintf("browser %s is Firefox-based and has no DevTools protocol; use a Chromium binary routed through the Tor proxy", e.Path)
}

// IsFirefoxBinary reports whether path names a Firefox executable, such as
// the one inside a Tor Browser bundle.
func IsFirefoxBinary(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasPrefix(base, "firefox")
}

// ResolveBrowserBinary returns configured when it names an existing file,
// or the first browser found on the system when configured is empty.
func ResolveBrowserBinary(configured string) (string, error) {
	if configured == "" {
		path, ok := launcher.LookPath()
		if !ok {
			return "", &ErrBinaryNotFound{}
		}
		return path, nil
	}
	if !isFile(configured) {
		return "", &ErrBinaryNotFound{Path: configured}
	}
	return configured, nil
}

// ResolveBundleDir returns the install directory of a bundled browser: dir when
// it is a directory, else the grandparent of binary when that file exists
// (<bundle>/Browser/firefox → <bundle>). Empty when neither applies.
func ResolveBundleDir(dir, binary string) string {
	if dir != "" && isDir(dir) {
		return dir
	}
	if binary != "" && isFile(binary) {
		return filepath.Dir(filepath.Dir(binary))
	}
	return ""
}

// ResolveBundleBinary locates the executable of a bundled browser. binary is
// used when it exists; otherwise <bundle>/Browser/firefox inside the resolved
// bundle directory.
func ResolveBundleBinary(dir, binary string) (string, error) {
	bundle := ResolveBundleDir(dir, binary)
	if bundle == "" {
		path := binary
		if path == "" {
			path = dir
		}
		return "", &ErrBinaryNotFound{Path: path}
	}
	if isFile(binary) {
		return binary, nil
	}
	return ResolveBrowserBinary(filepath.Join(bundle, "Browser", "firefox"))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
