package bot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"98765 43210", "+919876543210"},
		{"098765-43210", "+919876543210"},
		{"91 98765 43210", "+919876543210"},
		{"+91 (98765) 43210", "+919876543210"},
		{"+44 20 7946 0958", "+442079460958"},
		{"12345", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizePhoneNumber(tt.in))
		})
	}
}

func TestIsValidPhoneNumber(t *testing.T) {
	require.True(t, IsValidPhoneNumber("98765 43210"))
	require.True(t, IsValidPhoneNumber("+44 20 7946 0958"))
	require.False(t, IsValidPhoneNumber("00000 00000"))
	require.False(t, IsValidPhoneNumber("12345"))
	require.False(t, IsValidPhoneNumber("call me"))
}

func TestFormatPhoneNumber(t *testing.T) {
	require.Equal(t, "+91 98765 43210", FormatPhoneNumber("+919876543210"))
	require.Equal(t, "+442079460958", FormatPhoneNumber("+442079460958"))
}
