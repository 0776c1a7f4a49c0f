package cmd

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conneroisu/devkit/internal/logging"
)

// choiceValue is a string flag limited to a fixed set of values.
type choiceValue struct {
	target  *string
	choices []string
}

var _ pflag.Value = (*choiceValue)(nil)

func newChoiceValue(target *string, def string, choices ...string) *choiceValue {
	*target = def
	return &choiceValue{target: target, choices: choices}
}

func (c *choiceValue) String() string {
	if c.target == nil {
		return ""
	}
	return *c.target
}

func (c *choiceValue) Set(s string) error {
	if !slices.Contains(c.choices, s) {
		return fmt.Errorf("must be one of %s", strings.Join(c.choices, ", "))
	}
	*c.target = s
	return nil
}

// Type is "string" so viper binds the flag like any other string flag.
func (c *choiceValue) Type() string {
	return "string"
}

// validatingValue runs validator before handing the value to the wrapped
// flag.
type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(s string) error {
	if err := v.validator(s); err != nil {
		return err
	}
	return v.Value.Set(s)
}

// addFlagValidation wraps an already registered flag of fs.
func addFlagValidation(fs *pflag.FlagSet, name string, validator func(string) error) {
	if flag := fs.Lookup(name); flag != nil {
		flag.Value = &validatingValue{Value: flag.Value, validator: validator}
	}
}

func validateLogLevel(s string) error {
	_, err := logging.ParseLevel(s)
	return err
}

// validateListenAddr accepts host:port; an empty value disables the
// listener.
func validateListenAddr(s string) error {
	if s == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("want host:port: %w", err)
	}
	return nil
}

// formatFlag registers the --format flag shared by version and the dry-run
// plan.
func formatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().VarP(newChoiceValue(target, "text", "text", "json", "yaml"), "format", "f", "output format (text, json, yaml)")
}
