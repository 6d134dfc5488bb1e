package api

import (
	"net/http/httptest"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name      string
		provided  string
		config    string
		wantValid bool
	}{
		{"matching keys", "secret123", "secret123", true},
		{"wrong key", "wrong", "secret123", false},
		{"empty provided", "", "secret123", false},
		{"empty config", "secret123", "", false},
		{"both empty", "", "", false},
		{"length mismatch", "secret", "secret123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.provided, tt.config); got != tt.wantValid {
				t.Errorf("ValidateAPIKey() = %v, want %v", got, tt.wantValid)
			}
		})
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer token", "Bearer secret123", "secret123", false},
		{"bearer with padding", "Bearer   secret123  ", "secret123", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"bearer without key", "Bearer ", "", true},
		{"lowercase scheme", "bearer secret123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractAPIKey(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}
