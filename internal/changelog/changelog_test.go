package changelog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/devkit/internal/runner"
)

func TestBuildSection(t *testing.T) {
	assert.Equal(t, "## 1.2.4\n\n- Add ribbon icon\n- Fix settings tab\n",
		BuildSection("1.2.4", []string{"Add ribbon icon", "Fix settings tab"}))
	assert.Equal(t, "## 1.2.4\n\n- No notable changes\n", BuildSection("1.2.4", nil))
}

func TestInsert(t *testing.T) {
	section := BuildSection("1.1.0", []string{"New command"})

	tests := []struct {
		name     string
		existing string
		want     string
	}{
		{
			name:     "empty file",
			existing: "",
			want:     "# CHANGELOG\n\n## 1.1.0\n\n- New command\n",
		},
		{
			name:     "title only",
			existing: "# CHANGELOG\n",
			want:     "# CHANGELOG\n\n## 1.1.0\n\n- New command\n",
		},
		{
			name:     "previous sections kept",
			existing: "# CHANGELOG\n\n## 1.0.0\n\n- Initial release\n  with details\n",
			want:     "# CHANGELOG\n\n## 1.1.0\n\n- New command\n\n## 1.0.0\n\n- Initial release\n  with details\n",
		},
		{
			name:     "no title",
			existing: "## 1.0.0\n\n- Initial release\n",
			want:     "# CHANGELOG\n\n## 1.1.0\n\n- New command\n\n## 1.0.0\n\n- Initial release\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Insert(tt.existing, section)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, Title+"\n"))
		})
	}
}

func TestSection(t *testing.T) {
	content := "# CHANGELOG\n\n## 1.1.0\n\n- New command\n- Edited by hand\n\n## 1.0.0\n\n- Initial release\n"

	notes, ok := Section(content, "1.1.0")
	require.True(t, ok)
	assert.Equal(t, "- New command\n- Edited by hand", notes)

	notes, ok = Section(content, "1.0.0")
	require.True(t, ok)
	assert.Equal(t, "- Initial release", notes)

	_, ok = Section(content, "2.0.0")
	assert.False(t, ok)
}

func TestFilePrependAndNotes(t *testing.T) {
	fs := afero.NewMemMapFs()
	file := NewFile(fs, "/work/CHANGELOG.md")

	_, err := file.Prepend("1.0.0", []string{"Initial release"})
	require.NoError(t, err)
	section, err := file.Prepend("1.0.1", []string{"Fix crash on load"})
	require.NoError(t, err)
	assert.Equal(t, "## 1.0.1\n\n- Fix crash on load\n", section)

	data, err := afero.ReadFile(fs, file.Path())
	require.NoError(t, err)
	assert.Equal(t, "# CHANGELOG\n\n## 1.0.1\n\n- Fix crash on load\n\n## 1.0.0\n\n- Initial release\n", string(data))

	notes, err := file.Notes("1.0.1")
	require.NoError(t, err)
	assert.Equal(t, "- Fix crash on load", notes)

	_, err = file.Notes("9.9.9")
	assert.Error(t, err)
}

func TestPromptReviewer(t *testing.T) {
	var out bytes.Buffer
	reviewer := PromptReviewer{In: strings.NewReader("\n"), Out: &out}

	require.NoError(t, reviewer.Review(context.Background(), "CHANGELOG.md"))
	assert.Contains(t, out.String(), "Review CHANGELOG.md")
}

func TestPromptReviewerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := PromptReviewer{In: blockingReader{}, Out: &bytes.Buffer{}}
	assert.ErrorIs(t, blocked.Review(ctx, "CHANGELOG.md"), context.Canceled)
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestEditorReviewer(t *testing.T) {
	fake := runner.NewFake()
	reviewer := EditorReviewer{Runner: fake, Editor: "code --wait"}

	require.NoError(t, reviewer.Review(context.Background(), "CHANGELOG.md"))
	assert.Equal(t, []string{"code --wait CHANGELOG.md"}, fake.Lines())
	assert.True(t, fake.Calls[0].Stream)
}

func TestApproveReviewer(t *testing.T) {
	assert.NoError(t, ApproveReviewer{}.Review(context.Background(), "CHANGELOG.md"))
}
