package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeExternalRef(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain_hash_untouched",
			in:   "te6ccgEBAQEAAgAAAA",
			want: "te6ccgEBAQEAAgAAAA",
		},
		{
			name: "single_retry_suffix",
			in:   "abc123hash_1712345678901_r7Yx",
			want: "abc123hash",
		},
		{
			name: "stacked_retry_suffixes",
			in:   "abc123hash_1712345678901_r7Yx_1712345699999_Qq11",
			want: "abc123hash",
		},
		{
			name: "twelve_digit_timestamp_not_a_suffix",
			in:   "abc123hash_171234567890_r7Yx",
			want: "abc123hash_171234567890_r7Yx",
		},
		{
			name: "nonce_with_special_chars_not_a_suffix",
			in:   "abc123hash_1712345678901_r7-x",
			want: "abc123hash_1712345678901_r7-x",
		},
		{
			name: "surrounding_whitespace_trimmed",
			in:   "  abc123hash_1712345678901_r7Yx ",
			want: "abc123hash",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NormalizeExternalRef(tc.in))
		})
	}
}

func TestNormalizeExternalRefIdempotent(t *testing.T) {
	refs := []string{
		"hash_1712345678901_abc",
		"hash_1712345678901_abc_1712345678902_def",
		"plainhash",
	}
	for _, ref := range refs {
		once := NormalizeExternalRef(ref)
		require.Equal(t, once, NormalizeExternalRef(once))
	}
}
