package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		limit     int
		wantSmart string
		wantFull  string
		wantErr   error
	}{
		{
			name:      "valid payload",
			raw:       `{"smart_message": "short", "full_message": "long version"}`,
			limit:     2000,
			wantSmart: "short",
			wantFull:  "long version",
		},
		{
			name:    "malformed json",
			raw:     `{"smart_message": "short"`,
			limit:   2000,
			wantErr: ErrProviderResponseInvalid,
		},
		{
			name:    "missing full_message",
			raw:     `{"smart_message": "short"}`,
			limit:   2000,
			wantErr: ErrProviderResponseInvalid,
		},
		{
			name:    "missing smart_message",
			raw:     `{"full_message": "long"}`,
			limit:   2000,
			wantErr: ErrProviderResponseInvalid,
		},
		{
			name:    "empty smart_message",
			raw:     `{"smart_message": "", "full_message": "long"}`,
			limit:   2000,
			wantErr: ErrProviderResponseInvalid,
		},
		{
			name:    "smart_message over the bound",
			raw:     `{"smart_message": "` + strings.Repeat("a", 2001) + `", "full_message": "long"}`,
			limit:   2000,
			wantErr: ErrProviderResponseInvalid,
		},
		{
			name:      "smart_message exactly at the bound",
			raw:       `{"smart_message": "` + strings.Repeat("a", 2000) + `", "full_message": "long"}`,
			limit:     2000,
			wantSmart: strings.Repeat("a", 2000),
			wantFull:  "long",
		},
		{
			name: "bound counts runes, not bytes",
			// 10 three-byte characters are within a limit of 10
			raw:       `{"smart_message": "` + strings.Repeat("あ", 10) + `", "full_message": "long"}`,
			limit:     10,
			wantSmart: strings.Repeat("あ", 10),
			wantFull:  "long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			smart, full, err := parseSummary([]byte(tt.raw), tt.limit)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSmart, smart)
			assert.Equal(t, tt.wantFull, full)
		})
	}
}
