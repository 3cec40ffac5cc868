package loader

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestTextStrategy_UTF8WithBOM(t *testing.T) {
	data := []byte("\xef\xbb\xbfPost title,Impressions\nHello,\"1,234\"\n")
	sheets, err := textStrategy{}.Sheets(&file{name: "posts.csv", ext: ".csv", data: data})
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	require.Equal(t, []string{"Post title", "Impressions"}, sheets[0].Header)
	require.Equal(t, "1,234", sheets[0].Rows[0][1])
}

func TestTextStrategy_FallsBackToCP1252(t *testing.T) {
	src := "Post title;Likes\nCafé – launch;5\n"
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)

	sheets, err := textStrategy{}.Sheets(&file{name: "posts.csv", ext: ".csv", data: data})
	require.NoError(t, err)
	require.Equal(t, []string{"Post title", "Likes"}, sheets[0].Header)
	require.Equal(t, "Café – launch", sheets[0].Rows[0][0])
}

func TestTextStrategy_UTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes([]byte("Post title\tClicks\nHi\t3\n"))
	require.NoError(t, err)

	sheets, err := textStrategy{}.Sheets(&file{name: "posts.csv", ext: ".csv", data: data})
	require.NoError(t, err)
	require.Equal(t, []string{"Post title", "Clicks"}, sheets[0].Header)
	require.Equal(t, "3", sheets[0].Rows[0][1])
}

func TestTextStrategy_EmptyInputFails(t *testing.T) {
	_, err := textStrategy{}.Sheets(&file{name: "empty.csv", ext: ".csv", data: []byte("  \n")})
	require.Error(t, err)
}

func TestSniffDelimiter(t *testing.T) {
	require.Equal(t, ';', sniffDelimiter("a;b;c\n1;2;3"))
	require.Equal(t, '\t', sniffDelimiter("a\tb\n1\t2"))
	require.Equal(t, ',', sniffDelimiter("\"x;y\",b\n1,2"))
	require.Equal(t, ',', sniffDelimiter("single"))
}
