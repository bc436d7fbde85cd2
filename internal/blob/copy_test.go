package blob

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("broken")
}

func TestCopyLimited(t *testing.T) {
	big := strings.Repeat("x", int(chunkSize)*3+17)

	tests := []struct {
		name        string
		src         string
		limit       int64
		expected    int64
		copied      int64
		expectedErr error
	}{
		{name: "empty", src: "", limit: 10, expected: 0, copied: 0},
		{name: "small", src: "hello", limit: 10, expected: 5, copied: 5},
		{name: "several chunks", src: big, limit: 0, expected: -1, copied: int64(len(big))},
		{name: "exact limit", src: big, limit: int64(len(big)), expected: -1, copied: int64(len(big))},
		{name: "announced too large", src: "hello", limit: 4, expected: 5, expectedErr: ErrTooLarge},
		{name: "streamed too large", src: big, limit: chunkSize, expected: -1, expectedErr: ErrTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dst := bytes.Buffer{}
			n, err := CopyLimited(&dst, strings.NewReader(tc.src), tc.limit, tc.expected)
			if tc.expectedErr != nil {
				require.True(t, errors.Is(err, tc.expectedErr))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.copied, n)
			require.Equal(t, tc.src, dst.String())
		})
	}

	t.Run("read error", func(t *testing.T) {
		_, err := CopyLimited(io.Discard, failingReader{}, 0, -1)
		require.True(t, errors.Is(err, ErrCopying))
	})
}

func TestMediaKind(t *testing.T) {
	require.Equal(t, "image", MediaKind("image/png"))
	require.Equal(t, "video", MediaKind(" Video/MP4"))
	require.Equal(t, "", MediaKind("application/pdf"))
	require.Equal(t, "", MediaKind(""))
}
