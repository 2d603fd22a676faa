package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Println("Warning: OPENAI_API_KEY not set, agents fall back to the mock thinker")
	}
	if os.Getenv("SERP_API_KEY") == "" {
		log.Println("Warning: SERP_API_KEY not set, web research will be disabled")
	}
}

// OpenAIKey returns the OpenAI API key, empty when unset.
func OpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// SerpKey returns the SERP API key, empty when unset.
func SerpKey() string {
	return os.Getenv("SERP_API_KEY")
}

// NatsURL returns the NATS server URL, defaulting to localhost.
func NatsURL() string {
	if url := os.Getenv("NATS_URL"); url != "" {
		return url
	}
	return "nats://localhost:4222"
}
