package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantURL string
		wantErr string
	}{
		{
			name:    "success",
			status:  http.StatusOK,
			body:    `{"url":"https://checkout.example.com/s/abc"}`,
			wantURL: "https://checkout.example.com/s/abc",
		},
		{
			name:    "missing url",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: ErrNoRedirect.Error(),
		},
		{
			name:    "provider error",
			status:  http.StatusBadRequest,
			body:    `{"error":"invalid success_url"}`,
			wantErr: "invalid success_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sessionRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/create-checkout-session", r.URL.Path)
				assert.Equal(t, "Bearer fn-key", r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "fn-key", nil)
			url, err := client.CreateSession(context.Background(), "user-1", "https://app/success", "https://app/cancel")

			assert.Equal(t, "user-1", got.UserID)
			assert.Equal(t, "https://app/success", got.SuccessURL)
			assert.Equal(t, "https://app/cancel", got.CancelURL)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
		})
	}
}
