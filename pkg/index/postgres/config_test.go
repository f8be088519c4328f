package postgres

import (
	"strings"
	"testing"
)

func TestConfig_IsValid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{
			name: "valid config",
			cfg: Config{
				User:     "user",
				Password: "password",
				Host:     "localhost",
				Port:     "5432",
				DBName:   "profanity",
			},
			want: true,
		},
		{
			name: "empty config",
			cfg:  Config{},
			want: false,
		},
		{
			name: "config with empty DBName",
			cfg: Config{
				User:     "user",
				Password: "password",
				Host:     "localhost",
				Port:     "5432",
			},
			want: false,
		},
		{
			name: "negative dimensions",
			cfg: Config{
				User:       "user",
				Password:   "password",
				Host:       "localhost",
				Port:       "5432",
				DBName:     "profanity",
				Dimensions: -1,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsValid(); got != tt.want {
				t.Errorf("Config.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{User: "user", Password: "secret", Host: "localhost", Port: "5432", DBName: "profanity"}

	got := cfg.String()
	if strings.Contains(got, "secret") {
		t.Errorf("want password masked, got %s", got)
	}
	if !strings.Contains(got, `"******"`) {
		t.Errorf("want masked password of same length, got %s", got)
	}
	if cfg.Password != "secret" {
		t.Errorf("String must not modify the config")
	}
}

func TestConfig_ConString(t *testing.T) {
	cfg := Config{User: "u", Password: "p", Host: "db", Port: "5432", DBName: "profanity"}

	want := "postgres://u:p@db:5432/profanity"
	if got := cfg.ConString(); got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}
