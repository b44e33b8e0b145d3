// Package pkgconfig treats pkg-config as the external oracle described in
// §1/§4.3: given a module name and a search directory, it returns the
// compile and link flags pkg-config reports for that module. Invocation
// shells out with exec.CommandContext + Output, the same run-the-tool idiom
// the teacher's internal/deps package uses for external tools, with the one
// retry-on-transient-failure policy §7 calls for.
package pkgconfig

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/oarkflow/yambs/internal/yambserr"
)

// Result is what the oracle returns for one (module, search dir) pair.
type Result struct {
	Cflags string
	Libs   string
}

// Oracle resolves pkg-config queries and caches results by
// (module, searchDir) for the lifetime of one invocation, since §4.3 says
// to "invoke the pkg-config oracle once per (name, configuration) and
// cache the result."
type Oracle struct {
	cache map[string]Result
}

func New() *Oracle {
	return &Oracle{cache: make(map[string]Result)}
}

// Resolve runs pkg-config --cflags and --libs for module under searchDir,
// retrying once on a transient (non-zero, no stderr content pointing at a
// missing .pc file) failure, per §7.
func (o *Oracle) Resolve(module, searchDir string) (Result, error) {
	key := searchDir + "|" + module
	if r, ok := o.cache[key]; ok {
		return r, nil
	}

	r, err := o.run(module, searchDir)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || !strings.Contains(string(exitErr.Stderr), "was not found") {
			r, err = o.run(module, searchDir) // one retry on transient failure
		}
	}
	if err != nil {
		return Result{}, err
	}

	o.cache[key] = r
	return r, nil
}

func (o *Oracle) run(module, searchDir string) (Result, error) {
	cflags, err := o.invoke(module, searchDir, "--cflags")
	if err != nil {
		return Result{}, err
	}
	libs, err := o.invoke(module, searchDir, "--libs")
	if err != nil {
		return Result{}, err
	}
	return Result{Cflags: cflags, Libs: libs}, nil
}

func (o *Oracle) invoke(module, searchDir, flag string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pkg-config", flag, module)
	cmd.Env = append(os.Environ(), "PKG_CONFIG_PATH="+searchDir)

	out, err := cmd.Output()
	if err != nil {
		return "", yambserr.Wrap(yambserr.PkgConfigFailed, err, "pkg-config %s %s (search dir %s)", flag, module, searchDir)
	}
	return strings.TrimSpace(string(out)), nil
}
