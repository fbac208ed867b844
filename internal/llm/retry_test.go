package llm

import (
	"errors"
	"testing"
)

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()

	if cfg.MaxRetries <= 0 {
		t.Errorf("MaxRetries should be positive, got %d", cfg.MaxRetries)
	}
	if cfg.InitialInterval <= 0 {
		t.Errorf("InitialInterval should be positive, got %v", cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		t.Errorf("MaxInterval %v should be >= InitialInterval %v", cfg.MaxInterval, cfg.InitialInterval)
	}
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "rate limit",
			err:  errors.New("rate limit exceeded"),
			want: true,
		},
		{
			name: "quota exceeded",
			err:  errors.New("quota exceeded for quota metric 'Generate requests'"),
			want: true,
		},
		{
			name: "429 status",
			err:  errors.New("googleapi: Error 429: Resource has been exhausted"),
			want: true,
		},
		{
			name: "500 internal error",
			err:  errors.New("googleapi: Error 500: Internal error encountered"),
			want: true,
		},
		{
			name: "502 bad gateway",
			err:  errors.New("502 Bad Gateway"),
			want: true,
		},
		{
			name: "503 unavailable",
			err:  errors.New("503 Service Unavailable"),
			want: true,
		},
		{
			name: "504 gateway timeout",
			err:  errors.New("504 Gateway Timeout"),
			want: true,
		},
		{
			name: "connection reset",
			err:  errors.New("read tcp: connection reset by peer"),
			want: true,
		},
		{
			name: "client timeout",
			err:  errors.New("context deadline exceeded (Client.Timeout exceeded while awaiting headers)"),
			want: true,
		},
		{
			name: "temporary network failure",
			err:  errors.New("temporary failure in name resolution"),
			want: true,
		},
		{
			name: "case insensitive",
			err:  errors.New("RATE LIMIT reached"),
			want: true,
		},
		{
			name: "invalid api key",
			err:  errors.New("API key not valid. Please pass a valid API key."),
			want: false,
		},
		{
			name: "400 bad request",
			err:  errors.New("HTTP 400 Bad Request"),
			want: false,
		},
		{
			name: "403 forbidden",
			err:  errors.New("HTTP 403 Forbidden"),
			want: false,
		},
		{
			name: "malformed model output",
			err:  errors.New("parsing completion: yaml: line 3: could not find expected ':'"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
