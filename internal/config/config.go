package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret string

	// Diagnostic knobs. TimeoutMinutes is advisory: it is reported to
	// clients in session responses; the server never expires a session on
	// its own.
	DiagDefaultQuestions int
	DiagTimeoutMinutes   int

	// Mastery EMA tuning.
	MasteryBaseAlpha    float64
	MasteryInitialLevel float64

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:             addr,
		DBDriver:             envOr("DB_DRIVER", "sqlite"),
		DBDSN:                envOr("DB_DSN", ""),
		AuthHMACSecret:       envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		DiagDefaultQuestions: envInt("DIAG_DEFAULT_QUESTIONS", 30),
		DiagTimeoutMinutes:   envInt("DIAG_TIMEOUT_MIN", 60),
		MasteryBaseAlpha:     envFloat("MASTERY_ALPHA", 0.3),
		MasteryInitialLevel:  envFloat("MASTERY_INITIAL_LEVEL", 0.5),
		CORSOrigins:          csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
