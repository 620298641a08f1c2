package filesource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/filesource"
	"github.com/dmitrymomot/featurekit/pkg/flags"
)

const jsonDefinitions = `{
	"flags": [
		{
			"id": 1,
			"key": "beta",
			"active": true,
			"filters": {
				"groups": [{
					"properties": [{"key": "plan", "type": "person", "operator": "exact", "value": ["pro", "enterprise"]}],
					"rollout_percentage": 100
				}]
			}
		}
	],
	"group_type_mapping": {"0": "company"},
	"cohorts": {}
}`

const yamlDefinitions = `
flags:
  - id: 1
    key: beta
    active: true
    filters:
      groups:
        - properties:
            - key: plan
              type: person
              operator: exact
              value: [pro, enterprise]
          rollout_percentage: 100
group_type_mapping:
  0: company
cohorts: {}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := filesource.New("")
	assert.ErrorIs(t, err, filesource.ErrEmptyPath)

	_, err = filesource.New("flags.toml")
	assert.ErrorIs(t, err, filesource.ErrUnsupportedFormat)

	src, err := filesource.New("flags.toml", filesource.WithFormat(filesource.FormatJSON))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(src.Path()))
}

func TestSource_Fetch(t *testing.T) {
	t.Parallel()

	ectx := flags.Context{DistinctID: "user-1", PersonProperties: flags.Properties{"plan": "PRO"}}

	for _, tc := range []struct {
		name    string
		file    string
		content string
	}{
		{"json", "flags.json", jsonDefinitions},
		{"yaml", "flags.yaml", yamlDefinitions},
		{"yml", "flags.yml", yamlDefinitions},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, t.TempDir(), tc.file, tc.content)
			src, err := filesource.New(path)
			require.NoError(t, err)

			res, err := src.Fetch(context.Background(), "")
			require.NoError(t, err)
			require.NotNil(t, res.Snapshot)
			assert.Len(t, res.ETag, 64)
			assert.Equal(t, 1, res.Snapshot.Len())

			name, ok := res.Snapshot.GroupTypeName(0)
			assert.True(t, ok)
			assert.Equal(t, "company", name)

			result := flags.NewEvaluator().Evaluate(res.Snapshot, "beta", ectx)
			assert.Equal(t, flags.Match, result.Outcome)
		})
	}
}

func TestSource_FetchNotModified(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "flags.json", jsonDefinitions)
	src, err := filesource.New(path)
	require.NoError(t, err)

	first, err := src.Fetch(context.Background(), "")
	require.NoError(t, err)

	second, err := src.Fetch(context.Background(), first.ETag)
	require.NoError(t, err)
	assert.True(t, second.NotModified)
	assert.Nil(t, second.Snapshot)

	writeFile(t, dir, "flags.json", `{"flags": [], "cohorts": {}}`)
	third, err := src.Fetch(context.Background(), first.ETag)
	require.NoError(t, err)
	assert.False(t, third.NotModified)
	assert.NotEqual(t, first.ETag, third.ETag)
	assert.Equal(t, 0, third.Snapshot.Len())
}

func TestSource_FetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		src, err := filesource.New(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)

		_, err = src.Fetch(context.Background(), "")
		assert.ErrorIs(t, err, filesource.ErrReadFailed)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		src, err := filesource.New(writeFile(t, t.TempDir(), "flags.json", `{"flags": [`))
		require.NoError(t, err)

		_, err = src.Fetch(context.Background(), "")
		assert.ErrorIs(t, err, filesource.ErrDecodeFailed)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		src, err := filesource.New(writeFile(t, t.TempDir(), "flags.yaml", "flags: [\n  - key: {"))
		require.NoError(t, err)

		_, err = src.Fetch(context.Background(), "")
		assert.ErrorIs(t, err, filesource.ErrDecodeFailed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		src, err := filesource.New(writeFile(t, t.TempDir(), "flags.json", jsonDefinitions))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = src.Fetch(ctx, "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSource_Watch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "flags.json", jsonDefinitions)
	src, err := filesource.New(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, func() { changed <- struct{}{} })
	}()

	// Writes to sibling files are ignored; writes to the watched file are reported.
	// The watcher registers asynchronously, so keep writing until it reports.
	require.Eventually(t, func() bool {
		writeFile(t, dir, "other.json", "{}")
		writeFile(t, dir, "flags.json", jsonDefinitions)
		select {
		case <-changed:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
