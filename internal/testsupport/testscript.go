// Package testsupport holds helpers shared by the CLI script tests.
package testsupport

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"tourcal/internal/depend"
	"tourcal/internal/kvstore"
)

var (
	buildOnce   sync.Once
	tourcalPath string
	buildErr    error
)

// BuildTourcal builds the tourcal binary once and returns its path.
func BuildTourcal(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "tourcal-bin-")
		if err != nil {
			buildErr = err
			return
		}

		tourcalPath = filepath.Join(binDir, "tourcal")
		cmd := exec.Command("go", "build", "-o", tourcalPath, "./cmd/tourcal")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build tourcal: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}
	return tourcalPath
}

// SetupScriptEnv points $TOURCAL at the built binary and gives each script
// its own HOME and cache directory.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("TOURCAL", BuildTourcal(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := os.MkdirAll(filepath.Join(homeDir, ".cache"), 0o755); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("XDG_CACHE_HOME", filepath.Join(homeDir, ".cache"))
	return nil
}

// CmdLinkCount asserts how many links a links file holds.
func CmdLinkCount(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("linkcount does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: linkcount FILE N")
	}

	var want int
	if _, err := fmt.Sscanf(args[1], "%d", &want); err != nil {
		ts.Fatalf("bad count %q", args[1])
	}

	kv, err := kvstore.NewFile(ts.MkAbs(args[0]))
	if err != nil {
		ts.Fatalf("open links: %v", err)
	}
	store, err := depend.OpenLinkStore(kv)
	if err != nil {
		ts.Fatalf("load links: %v", err)
	}
	if got := len(store.List()); got != want {
		ts.Fatalf("expected %d links, found %d", want, got)
	}
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
