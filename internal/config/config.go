// Package config provides configuration management for devkit using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration file is .devkit.yml in the project root. Every key can be
// overridden with a DEVKIT_ prefixed environment variable (DEVKIT_BUILD_OUT_DIR
// for build.out_dir). Two variables keep their conventional names:
// OBSIDIAN_CONFIG_FOLDER selects the vault configuration folder that receives
// development builds, and NPM_TOKEN authenticates registry publishing.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Environment variables bound outside the DEVKIT_ prefix.
const (
	EnvPluginConfigDir = "OBSIDIAN_CONFIG_FOLDER"
	EnvRegistryToken   = "NPM_TOKEN"
)

type Config struct {
	Build   BuildConfig   `mapstructure:"build" yaml:"build"`
	Plugin  PluginConfig  `mapstructure:"plugin" yaml:"plugin"`
	Dev     DevConfig     `mapstructure:"dev" yaml:"dev"`
	Tools   ToolsConfig   `mapstructure:"tools" yaml:"tools"`
	Release ReleaseConfig `mapstructure:"release" yaml:"release"`
	Publish PublishConfig `mapstructure:"publish" yaml:"publish"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`

	// Warnings are validation findings that do not stop loading.
	Warnings []ValidationError `mapstructure:"-" yaml:"-"`
}

type BuildConfig struct {
	Entry        string   `mapstructure:"entry" yaml:"entry"`
	OutDir       string   `mapstructure:"out_dir" yaml:"out_dir"`
	StaticDir    string   `mapstructure:"static_dir" yaml:"static_dir"`
	Target       string   `mapstructure:"target" yaml:"target"`
	OutExtension string   `mapstructure:"out_extension" yaml:"out_extension"`
	Minify       bool     `mapstructure:"minify" yaml:"minify"`
	External     []string `mapstructure:"external" yaml:"external"`
}

type PluginConfig struct {
	// ID overrides the id read from manifest.json.
	ID        string `mapstructure:"id" yaml:"id"`
	ConfigDir string `mapstructure:"config_dir" yaml:"config_dir"`
}

type DevConfig struct {
	Watch      []string      `mapstructure:"watch" yaml:"watch"`
	Debounce   time.Duration `mapstructure:"debounce" yaml:"debounce"`
	ReloadAddr string        `mapstructure:"reload_addr" yaml:"reload_addr"`
}

// ToolsConfig holds the command lines of the external tools devkit drives.
type ToolsConfig struct {
	ESLint       string `mapstructure:"eslint" yaml:"eslint"`
	MarkdownLint string `mapstructure:"markdownlint" yaml:"markdownlint"`
	Formatter    string `mapstructure:"formatter" yaml:"formatter"`
	SpellCheck   string `mapstructure:"spellcheck" yaml:"spellcheck"`
	TypeScript   string `mapstructure:"typescript" yaml:"typescript"`
	Svelte       string `mapstructure:"svelte" yaml:"svelte"`
	Npm          string `mapstructure:"npm" yaml:"npm"`
}

type ReleaseConfig struct {
	Checks    []string `mapstructure:"checks" yaml:"checks"`
	Changelog string   `mapstructure:"changelog" yaml:"changelog"`
	Review    bool     `mapstructure:"review" yaml:"review"`
	Editor    string   `mapstructure:"editor" yaml:"editor"`
}

type PublishConfig struct {
	Token string `mapstructure:"token" yaml:"-"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// Release checks accepted in release.checks.
const (
	CheckSpellcheck = "spellcheck"
	CheckLint       = "lint"
	CheckFormat     = "format"
	CheckBuild      = "build"
)

// BindEnvironment binds the conventional environment variables onto v.
func BindEnvironment(v *viper.Viper) {
	_ = v.BindEnv("plugin.config_dir", EnvPluginConfigDir)
	_ = v.BindEnv("publish.token", EnvRegistryToken)
}

// LoadFrom reads, defaults and validates the configuration held by v. The
// first validation error fails the load; warnings are kept in
// Config.Warnings for the caller to report.
func LoadFrom(v *viper.Viper) (*Config, error) {
	BindEnvironment(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle slices set via viper (workaround for viper slice handling)
	if v.IsSet("build.external") && len(config.Build.External) == 0 {
		config.Build.External = v.GetStringSlice("build.external")
	}
	if v.IsSet("release.checks") {
		config.Release.Checks = v.GetStringSlice("release.checks")
	}
	if v.IsSet("dev.watch") && len(config.Dev.Watch) == 0 {
		config.Dev.Watch = v.GetStringSlice("dev.watch")
	}

	applyDefaults(v, &config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(v *viper.Viper, config *Config) {
	if config.Build.Entry == "" {
		config.Build.Entry = "src/main.ts"
	}
	if config.Build.OutDir == "" {
		config.Build.OutDir = "dist"
	}
	if config.Build.StaticDir == "" {
		config.Build.StaticDir = "static"
	}
	if config.Build.Target == "" {
		config.Build.Target = "es2018"
	}
	if config.Build.OutExtension == "" {
		config.Build.OutExtension = ".js"
	}

	if len(config.Dev.Watch) == 0 {
		config.Dev.Watch = []string{"src", config.Build.StaticDir}
	}
	if config.Dev.Debounce <= 0 {
		config.Dev.Debounce = 300 * time.Millisecond
	}

	if config.Tools.ESLint == "" {
		config.Tools.ESLint = "npx eslint ."
	}
	if config.Tools.MarkdownLint == "" {
		config.Tools.MarkdownLint = "npx markdownlint-cli2 **/*.md #node_modules"
	}
	if config.Tools.Formatter == "" {
		config.Tools.Formatter = "npx dprint"
	}
	if config.Tools.SpellCheck == "" {
		config.Tools.SpellCheck = "npx cspell . --no-progress"
	}
	if config.Tools.TypeScript == "" {
		config.Tools.TypeScript = "npx tsc --noEmit"
	}
	if config.Tools.Svelte == "" {
		config.Tools.Svelte = "npx svelte-check --output machine"
	}
	if config.Tools.Npm == "" {
		config.Tools.Npm = "npm"
	}

	if !v.IsSet("release.checks") && len(config.Release.Checks) == 0 {
		config.Release.Checks = []string{CheckSpellcheck, CheckLint, CheckBuild}
	}
	if config.Release.Changelog == "" {
		config.Release.Changelog = "CHANGELOG.md"
	}
	if !v.IsSet("release.review") {
		config.Release.Review = true
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}
