package udping_test

import (
	"testing"

	udping "github.com/pedramktb/go-udping"
	"github.com/stretchr/testify/require"
)

func TestFormatPing_KeepsDoubleSpace(t *testing.T) {
	require.Equal(t, "this is 0  ping!", string(udping.FormatPing(0)))
	require.Equal(t, "this is 17  ping!", string(udping.FormatPing(17)))
}

func TestDecode(t *testing.T) {
	msg, err := udping.Decode([]byte("héllo"))
	require.NoError(t, err)
	require.Equal(t, "héllo", msg)

	_, err = udping.Decode([]byte{0xff, 0xfe, 0xfd})
	require.ErrorIs(t, err, udping.ErrInvalidPayload)

	msg, err = udping.Decode(nil)
	require.NoError(t, err)
	require.Empty(t, msg)
}

func TestIsSentinel_StrictEquality(t *testing.T) {
	require.True(t, udping.IsSentinel("reply"))
	for _, s := range []string{"", "Reply", "reply\n", " reply", "replyreply", "this is a ping!"} {
		require.False(t, udping.IsSentinel(s), "%q", s)
	}
}

func TestPort(t *testing.T) {
	p, err := udping.Port("5555")
	require.NoError(t, err)
	require.Equal(t, 5555, p)

	for _, s := range []string{"", "abc", "0", "65536", "-1", "12x"} {
		_, err := udping.Port(s)
		require.ErrorIs(t, err, udping.ErrInvalidPort, "%q", s)
	}
}
