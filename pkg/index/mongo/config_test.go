package mongo

import (
	"errors"
	"testing"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		wantCon string
	}{
		{
			name:    "host and port",
			env:     map[string]string{"MONGO_HOST": "localhost", "MONGO_PORT": "27017", "MONGO_DB_NAME": "profanity"},
			wantCon: "mongodb://localhost:27017/",
		},
		{
			name:    "with credentials",
			env:     map[string]string{"MONGO_HOST": "db", "MONGO_PORT": "27017", "MONGO_DB_NAME": "profanity", "MONGO_USER": "u", "MONGO_PASS": "p"},
			wantCon: "mongodb://u:p@db:27017/",
		},
		{
			name:    "uri only",
			env:     map[string]string{"MONGO_URI": "mongodb+srv://cluster.example", "MONGO_DB_NAME": "profanity"},
			wantCon: "mongodb+srv://cluster.example",
		},
		{
			name:    "missing host",
			env:     map[string]string{"MONGO_PORT": "27017", "MONGO_DB_NAME": "profanity"},
			wantErr: true,
		},
		{
			name:    "missing db name",
			env:     map[string]string{"MONGO_HOST": "localhost", "MONGO_PORT": "27017"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"MONGO_URI", "MONGO_HOST", "MONGO_PORT", "MONGO_DB_NAME", "MONGO_USER", "MONGO_PASS", "MONGO_COLLECTION"} {
				t.Setenv(k, tt.env[k])
			}

			conf, err := NewConfig()
			if tt.wantErr {
				if !errors.Is(err, ErrConfParamMissing) {
					t.Errorf("want error %v, got %v", ErrConfParamMissing, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := conf.conString(); got != tt.wantCon {
				t.Errorf("want connection string %s, got %s", tt.wantCon, got)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{"valid", Config{Host: "h", Port: "1", DBName: "d"}, false},
		{"uri", Config{URI: "mongodb://h", DBName: "d"}, false},
		{"no port", Config{Host: "h", DBName: "d"}, true},
		{"no db", Config{Host: "h", Port: "1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("want error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	if c.collection() != DefaultCollection {
		t.Errorf("want collection %s, got %s", DefaultCollection, c.collection())
	}
	if c.indexName() != DefaultIndexName {
		t.Errorf("want index %s, got %s", DefaultIndexName, c.indexName())
	}
}
