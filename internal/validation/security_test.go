package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateArgument(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		wantErr bool
	}{
		{"valid argument", "fmt", false},
		{"valid relative path", "./dist", false},
		{"glob", "**/*.md", false},
		{"command injection semicolon", "fmt; rm -rf /", true},
		{"command injection pipe", "check | cat /etc/passwd", true},
		{"command injection backtick", "fmt`whoami`", true},
		{"path traversal", "../../../etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgument(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	assert.NoError(t, ValidateCommand("git", AllowedCommands))
	assert.NoError(t, ValidateCommand("npx", AllowedCommands))
	assert.ErrorIs(t, ValidateCommand("", AllowedCommands), ErrEmpty)
	assert.ErrorIs(t, ValidateCommand("rm", AllowedCommands), ErrNotAllowed)
	assert.ErrorIs(t, ValidateCommand("git;ls", map[string]bool{"git;ls": true}), ErrShellMeta)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"dist", false},
		{"src/main.ts", false},
		{"./static", false},
		{"notes..md", false},
		{"", true},
		{"../outside", true},
		{"/proc/self", true},
		{"a/../../b", true},
		{"/etc/passwd", true},
		{"out$dir", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePluginID(t *testing.T) {
	assert.NoError(t, ValidatePluginID("daily-notes-plus"))
	assert.NoError(t, ValidatePluginID("obsidian-sample-plugin"))
	assert.Error(t, ValidatePluginID("Daily Notes"))
	assert.Error(t, ValidatePluginID("../evil"))
	assert.Error(t, ValidatePluginID(""))
	assert.Error(t, ValidatePluginID("-leading"))
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"app://obsidian.md", "localhost:7357"}

	assert.NoError(t, ValidateOrigin("app://obsidian.md", allowed))
	assert.NoError(t, ValidateOrigin("http://localhost:7357", allowed))
	assert.ErrorIs(t, ValidateOrigin("http://localhost:5173", allowed), ErrOrigin, "host:port entries pin the port")

	local := []string{"app://obsidian.md", "localhost", "127.0.0.1"}
	assert.NoError(t, ValidateOrigin("http://localhost:5173", local))
	assert.NoError(t, ValidateOrigin("http://127.0.0.1:8080", local))
	assert.NoError(t, ValidateOrigin("http://localhost", local))
	assert.ErrorIs(t, ValidateOrigin("http://localhost.evil.example:80", local), ErrOrigin)
	assert.ErrorIs(t, ValidateOrigin("", allowed), ErrOrigin)
	assert.ErrorIs(t, ValidateOrigin("https://evil.example", allowed), ErrOrigin)
	assert.ErrorIs(t, ValidateOrigin("file:///etc", allowed), ErrOrigin)
}
