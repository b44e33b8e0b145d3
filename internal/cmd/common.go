package cmd

import (
	"os"
	"path/filepath"

	"github.com/oarkflow/yambs/internal/cache"
	"github.com/oarkflow/yambs/internal/compiler"
	"github.com/oarkflow/yambs/internal/generator"
	"github.com/oarkflow/yambs/internal/layout"
	"github.com/oarkflow/yambs/internal/resolver"
	"github.com/oarkflow/yambs/internal/yambserr"
)

// requireEnv reads a required environment variable, failing with
// UsageError per §6.2 if it is unset.
func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", yambserr.New(yambserr.UsageError, "required environment variable %s is not set", name)
	}
	return v, nil
}

func parseConfig() (generator.Configuration, error) {
	switch config {
	case "debug":
		return generator.Debug, nil
	case "release":
		return generator.Release, nil
	default:
		return "", yambserr.New(yambserr.UsageError, "--config must be debug or release, got %q", config)
	}
}

// resolveAndGenerate runs the full resolve -> detect compiler -> cache ->
// generate pipeline shared by `build` and `generate`.
func resolveAndGenerate() (*resolver.Graph, *layout.Layout, error) {
	cfg, err := parseConfig()
	if err != nil {
		return nil, nil, err
	}

	cxxPath, err := requireEnv("CXX")
	if err != nil {
		return nil, nil, err
	}

	manifestPath := filepath.Join(manifestDir, "yambs.toml")
	g, err := resolver.New().Resolve(manifestPath, "")
	if err != nil {
		return nil, nil, err
	}

	comp, err := compiler.Detect(cxxPath)
	if err != nil {
		return nil, nil, err
	}

	lay, err := layout.New(buildDir)
	if err != nil {
		return nil, nil, err
	}

	projectCache, err := cache.Open(lay.Root)
	if err != nil {
		return nil, nil, err
	}
	if err := projectCache.PutCompiler(cache.CompilerRecord{
		Path:    comp.ExecutablePath,
		Family:  string(comp.Family),
		Version: comp.DetectedVersion,
	}); err != nil {
		return nil, nil, err
	}

	if _, err := generator.Generate(g, lay, generator.Options{
		Config:   cfg,
		CppStd:   cppStd,
		Compiler: comp,
		Cache:    projectCache,
	}); err != nil {
		return nil, nil, err
	}

	return g, lay, nil
}
