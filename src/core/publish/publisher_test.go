package publish_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/src/core/objectstore"
	"ragbot/src/core/publish"
	"ragbot/src/core/vectorindex"
	"ragbot/src/fsutil"
)

// dirBucket is an objectstore.Bucket over a local directory
type dirBucket struct {
	root string
	puts []string
}

func (b *dirBucket) PutFile(ctx context.Context, key, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	b.puts = append(b.puts, key)
	return os.WriteFile(filepath.Join(b.root, key), data, 0644)
}

func (b *dirBucket) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Name())
	}
	return keys, nil
}

func (b *dirBucket) GetFile(ctx context.Context, key, filePath string) error {
	data, err := os.ReadFile(filepath.Join(b.root, key))
	if os.IsNotExist(err) {
		return objectstore.ErrObjectNotFound
	}
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

func (b *dirBucket) Ping(ctx context.Context) error { return nil }

// lengthEmbedder maps text to a small deterministic vector
type lengthEmbedder struct{}

func (lengthEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), float32(strings.Count(text, " ") + 1)}, nil
}

type countingProgress struct{ n int }

func (c *countingProgress) Add(n int) error {
	c.n += n
	return nil
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		want    []string
		wantErr bool
	}{
		{name: "text", file: "a.txt", data: "The sky is blue.", want: []string{"The sky is blue."}},
		{name: "csv rows", file: "b.CSV", data: "q,a\nWhat is AI?,A field\nExplain ML?,Learning\n", want: []string{"q: What is AI?\na: A field", "q: Explain ML?\na: Learning"}},
		{name: "csv header only", file: "c.csv", data: "q,a\n", want: nil},
		{name: "unsupported", file: "d.docx", data: "x", wantErr: true},
		{name: "broken pdf", file: "e.pdf", data: "not a pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := publish.Extract(tt.file, []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, d := range docs {
				assert.Equal(t, tt.file, d.Source)
				got = append(got, d.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	fs := fsutil.NewLocalFileStore()
	bucket := &dirBucket{root: t.TempDir()}
	client := objectstore.NewClient(bucket, fs, t.TempDir())

	_, err := client.Upload(ctx, []byte("The sky is blue."), "sky.txt")
	require.NoError(t, err)
	_, err = client.Upload(ctx, []byte("q,a\nWhat is AI?,A field\n"), "faq.csv")
	require.NoError(t, err)
	_, err = client.Upload(ctx, []byte("binary"), "image.png")
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(local, []byte(strings.Repeat("grass is green. ", 100)), 0644))

	scratch := t.TempDir()
	p := publish.NewPublisher(client, lengthEmbedder{}, fs, scratch, "my_faiss", publish.WithChunking(200, 20))

	keys, err := p.SourceKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	progress := &countingProgress{}
	summary, err := p.Publish(ctx, keys, []string{local}, progress)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Documents)
	assert.Greater(t, summary.Chunks, 3)
	assert.Equal(t, summary.Chunks, progress.n)

	n := len(bucket.puts)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, []string{"my_faiss.faiss", "my_faiss.pkl"}, bucket.puts[n-2:])

	idx, err := vectorindex.Load("my_faiss", bucket.root)
	require.NoError(t, err)
	assert.Equal(t, summary.Chunks, idx.Len())

	// published artifacts are not treated as sources on the next run
	keys, err = p.SourceKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPublishNothingToIndex(t *testing.T) {
	fs := fsutil.NewLocalFileStore()
	client := objectstore.NewClient(&dirBucket{root: t.TempDir()}, fs, t.TempDir())
	p := publish.NewPublisher(client, lengthEmbedder{}, fs, t.TempDir(), "")

	_, err := p.Publish(context.Background(), nil, nil, nil)
	assert.Error(t, err)
}

// recordingStore serves fixed content for any key and records download targets
type recordingStore struct {
	content map[string]string
	dests   []string
}

func (s *recordingStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.content))
	for k := range s.content {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *recordingStore) Download(ctx context.Context, key, destinationPath string) error {
	s.dests = append(s.dests, destinationPath)
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(destinationPath, []byte(s.content[key]), 0644)
}

func (s *recordingStore) PutArtifact(ctx context.Context, key, localPath string) error {
	return nil
}

func TestPublishKeepsDownloadsInScratch(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "scratch")
	store := &recordingStore{content: map[string]string{
		"../escape.txt":       "outside the scratch area",
		"nested/../../up.txt": "also outside",
		"a/same.txt":          "first",
		"b/same.txt":          "second",
	}}
	keys := []string{"../escape.txt", "nested/../../up.txt", "a/same.txt", "b/same.txt"}

	p := publish.NewPublisher(store, lengthEmbedder{}, fsutil.NewLocalFileStore(), scratch, "my_faiss")
	summary, err := p.Publish(context.Background(), keys, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Documents)

	require.Len(t, store.dests, 4)
	seen := map[string]bool{}
	for _, d := range store.dests {
		rel, err := filepath.Rel(scratch, d)
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(rel, ".."), "download escaped scratch: %s", d)
		assert.False(t, seen[d], "two keys shared %s", d)
		seen[d] = true
	}

	_, err = os.Stat(filepath.Join(filepath.Dir(scratch), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}
