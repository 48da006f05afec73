package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/shortid"
)

func TestShortIDToken(t *testing.T) {
	codec := shortid.NewCodec("E", 5)

	testCases := []struct {
		name    string
		body    string
		set     bool
		want    int64
		wantErr bool
	}{
		{"number", `{"shortId": 42}`, true, 42, false},
		{"bare string", `{"shortId": "42"}`, true, 42, false},
		{"display form", `{"shortId": "E-00042"}`, true, 42, false},
		{"lower case prefix", `{"shortId": "e-42"}`, true, 42, false},
		{"null", `{"shortId": null}`, false, 0, true},
		{"absent", `{}`, false, 0, true},
		{"negative", `{"shortId": -3}`, true, 0, true},
		{"fraction", `{"shortId": 1.5}`, true, 0, true},
		{"wrong prefix", `{"shortId": "R-00042"}`, true, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var req checkRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			assert.Equal(t, tc.set, req.ShortID.Set())

			got, err := req.ShortID.Value("shortId", codec)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestShortIDToken_MissingIsInvalidArgument(t *testing.T) {
	var tok ShortIDToken
	_, err := tok.Value("shortIdA", shortid.NewCodec("E", 5))
	assert.True(t, apperr.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "shortIdA")
}
