package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr string
	}{
		{
			name:  "nil params",
			input: nil,
			want:  &Params{},
		},
		{
			name: "feature lake on s3",
			input: map[string]any{
				"extensions": []any{"httpfs"},
				"settings":   map[string]any{"memory_limit": "4GB"},
				"secrets": []any{
					map[string]any{
						"type":      "s3",
						"provider":  "config",
						"region":    "eu-west-1",
						"key_id":    "AKIAEXAMPLE",
						"secret":    "example-secret",
						"endpoint":  "http://localhost:9000",
						"url_style": "path",
						"use_ssl":   false,
						"scope":     "s3://features",
					},
				},
			},
			want: &Params{
				Extensions: []string{"httpfs"},
				Settings:   map[string]string{"memory_limit": "4GB"},
				Secrets: []SecretConfig{{
					Type:     "s3",
					Provider: "config",
					Region:   "eu-west-1",
					KeyID:    "AKIAEXAMPLE",
					Secret:   "example-secret",
					Endpoint: "http://localhost:9000",
					URLStyle: "path",
					UseSSL:   boolPtr(false),
					Scope:    "s3://features",
				}},
			},
		},
		{
			name: "scope list",
			input: map[string]any{
				"secrets": []any{
					map[string]any{"type": "gcs", "provider": "credential_chain", "scope": []any{"gs://a", "gs://b"}},
				},
			},
			want: &Params{
				Secrets: []SecretConfig{{Type: "gcs", Provider: "credential_chain", Scope: []any{"gs://a", "gs://b"}}},
			},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extension": []any{"httpfs"}},
			wantErr: "invalid duckdb params",
		},
		{
			name:    "wrong shape",
			input:   map[string]any{"secrets": "s3"},
			wantErr: "invalid duckdb params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func TestParseParams_WeakSettings(t *testing.T) {
	got, err := parseParams(map[string]any{"settings": map[string]any{"threads": 4}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"threads": "4"}, got.Settings)
}

func TestSettingStatements(t *testing.T) {
	got := settingStatements(map[string]string{"threads": "4", "memory_limit": "4GB"})
	assert.Equal(t, []string{
		"SET GLOBAL memory_limit = '4GB'",
		"SET GLOBAL threads = '4'",
	}, got)
}

func TestSecretConfig_SQL(t *testing.T) {
	s := SecretConfig{
		Type:     "s3",
		Provider: "credential_chain",
		Region:   "us-west-2",
		Scope:    []any{"s3://bucket1", "s3://bucket2"},
		UseSSL:   boolPtr(false),
	}

	assert.Equal(t,
		"CREATE OR REPLACE SECRET feature_lake (TYPE s3, PROVIDER credential_chain, REGION 'us-west-2', USE_SSL false, SCOPE 's3://bucket1', SCOPE 's3://bucket2')",
		s.SQL("feature_lake"))
}
