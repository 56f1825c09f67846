package context

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEncoding(t *testing.T) {
	cases := map[string]Encoding{
		"n": EncodingNone,
		"e": EncodingEUCJP,
		"u": EncodingUTF8,
		"s": EncodingSJIS,
		"l": EncodingLatin1,
		"k": EncodingKOI8R,
		"":  EncodingUTF8,
		"?": EncodingUTF8,
	}
	for letter, want := range cases {
		require.Equal(t, want, ParseEncoding(letter), "letter %q", letter)
	}
}

func TestFlushViaStdoutSender(t *testing.T) {
	var out bytes.Buffer
	ctx := New(EncodingUTF8, 0, &StdoutSender{W: &out}, 16)

	ctx.Buffer().AppendString("hello")
	require.NoError(t, ctx.Flush(false))
	require.Equal(t, "hello", out.String())
	require.Equal(t, 0, ctx.Buffer().Len())
	require.Equal(t, StatusRunning, ctx.Status)
}

func TestFlushMoreKeepsStatus(t *testing.T) {
	var out bytes.Buffer
	ctx := New(EncodingUTF8, 0, &StdoutSender{W: &out}, 16)

	ctx.Buffer().AppendString("part1")
	require.NoError(t, ctx.Flush(true))
	require.Equal(t, StatusMore, ctx.Status)

	ctx.Buffer().AppendString("part2")
	require.NoError(t, ctx.Flush(false))
	require.Equal(t, StatusRunning, ctx.Status)
	require.Equal(t, "part1part2", out.String())
}

func TestSocketSenderFramesMoreThenTail(t *testing.T) {
	var out bytes.Buffer
	ctx := New(EncodingUTF8, 0, &SocketSender{W: &out}, 16)

	ctx.Buffer().AppendString("abc")
	require.NoError(t, ctx.Flush(true))
	ctx.Buffer().AppendString("de")
	require.NoError(t, ctx.Flush(false))

	frame1 := out.Bytes()[:gqtpHeaderSize+3]
	require.Equal(t, gqtpFlagMore, frame1[5])
	require.Equal(t, "abc", string(frame1[gqtpHeaderSize:]))

	frame2 := out.Bytes()[gqtpHeaderSize+3:]
	require.Equal(t, gqtpFlagTail, frame2[5])
	require.Equal(t, "de", string(frame2[gqtpHeaderSize:]))
}

func TestQuitSetsStatus(t *testing.T) {
	ctx := New(EncodingUTF8, 0, &StdoutSender{W: &bytes.Buffer{}}, 0)
	ctx.Quit()
	require.Equal(t, StatusQuit, ctx.Status)
}
