package bump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{"major", KindMajor},
		{"minor", KindMinor},
		{"patch", KindPatch},
		{"beta", KindBeta},
		{" patch ", KindPatch},
		{"2.0.0-rc.1", KindManual},
		{"1.2.3", KindManual},
		{"1.2.3+build.5", KindManual},
		{"v1.2.3", KindInvalid},
		{"1.2", KindInvalid},
		{"Major", KindInvalid},
		{"prerelease", KindInvalid},
		{"", KindInvalid},
		{"01.2.3", KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			b := Classify(tt.input)
			assert.Equal(t, tt.kind, b.Kind)
			if tt.kind == KindInvalid {
				err := b.Validate()
				require.Error(t, err)
				assert.True(t, devkiterrors.IsValidationError(err))
			} else {
				assert.NoError(t, b.Validate())
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 3}, v)
	assert.False(t, v.IsBeta())

	v, err = ParseVersion("10.0.4-beta.12")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 10, Patch: 4, Beta: 12}, v)
	assert.Equal(t, "10.0.4-beta.12", v.String())

	for _, bad := range []string{"1.2", "1.2.3-rc.1", "1.2.3-beta", "1.2.3-beta.0", "a.b.c", ""} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		bump     string
		expected string
	}{
		{"major resets lower components", "1.2.3", "major", "2.0.0"},
		{"major from beta", "1.2.4-beta.3", "major", "2.0.0"},
		{"minor resets patch", "1.2.3", "minor", "1.3.0"},
		{"minor from beta", "1.2.4-beta.1", "minor", "1.3.0"},
		{"patch increments", "1.2.3", "patch", "1.2.4"},
		{"patch ends a beta series", "1.2.4-beta.2", "patch", "1.2.4"},
		{"beta starts a series", "1.2.3", "beta", "1.2.4-beta.1"},
		{"beta continues a series", "1.2.4-beta.1", "beta", "1.2.4-beta.2"},
		{"manual literal passes through", "1.2.3", "2.0.0-rc.1", "2.0.0-rc.1"},
		{"manual ignores malformed current", "garbage", "3.1.4", "3.1.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.current, Classify(tt.bump))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNextBetaSequence(t *testing.T) {
	v, err := Next("1.2.3", Classify("beta"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.4-beta.1", v)

	v, err = Next(v, Classify("beta"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.4-beta.2", v)

	v, err = Next(v, Classify("patch"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", v)
}

func TestNextErrors(t *testing.T) {
	_, err := Next("1.2.3", Classify("huge"))
	require.Error(t, err)
	assert.True(t, devkiterrors.IsValidationError(err))

	_, err = Next("1.2", Classify("patch"))
	require.Error(t, err)
	assert.ErrorIs(t, err, &devkiterrors.DevkitError{
		Type: devkiterrors.ErrorTypeValidation,
		Code: devkiterrors.ErrCodeVersionFormat,
	})
}

func TestVersionCompare(t *testing.T) {
	order := []string{"1.2.3", "1.2.4-beta.1", "1.2.4-beta.2", "1.2.4", "1.3.0", "2.0.0"}
	for i := 0; i < len(order)-1; i++ {
		a, err := ParseVersion(order[i])
		require.NoError(t, err)
		b, err := ParseVersion(order[i+1])
		require.NoError(t, err)
		assert.Equal(t, -1, a.Compare(b), "%s < %s", order[i], order[i+1])
		assert.Equal(t, 1, b.Compare(a))
		assert.Equal(t, 0, a.Compare(a))
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "beta", KindBeta.String())
	assert.Equal(t, "invalid", Kind(42).String())
	assert.Equal(t, "2.0.0", Bump{Kind: KindManual, Literal: "2.0.0"}.String())
	assert.Equal(t, "minor", Classify("minor").String())
}
